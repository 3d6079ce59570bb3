package depscheck

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

// packages maps executables to the package that usually provides them.
var packages = map[string]string{
	"convert": "imagemagick",
	"icotool": "icoutils",
	"bzip2":   "bzip2",
	"gzip":    "gzip",
	"tar":     "tar",
	"zip":     "zip",
}

// InstallHint suggests how to install tool on the host described by info.
// It returns "" when no suggestion is known.
func InstallHint(info *platform.Info, tool string) string {
	switch tool {
	case "sips", "iconutil":
		return fmt.Sprintf("%s ships with macOS and is only available there", tool)
	case "rcedit":
		return "rcedit is distributed as a standalone binary: https://github.com/electron/rcedit/releases"
	}

	pkg, ok := packages[tool]
	if !ok || info == nil {
		return ""
	}
	if info.IsMacOS() {
		return "brew install " + pkg
	}
	if !info.IsLinux() {
		return ""
	}

	switch info.Family {
	case platform.FamilyDebian:
		return "sudo apt-get install " + pkg
	case platform.FamilyRHEL, platform.FamilyFedora:
		return "sudo dnf install " + pkg
	case platform.FamilySUSE:
		return "sudo zypper install " + pkg
	case platform.FamilyArch:
		return "sudo pacman -S " + pkg
	case platform.FamilyAlpine:
		return "sudo apk add " + pkg
	case platform.FamilyGentoo:
		return "sudo emerge " + pkg
	}
	return ""
}
