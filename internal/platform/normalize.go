package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// platformAliases maps accepted spellings to packaging platforms.
var platformAliases = map[string]string{
	"osx":     OSX,
	"mac":     OSX,
	"macos":   OSX,
	"darwin":  OSX,
	"linux":   Linux,
	"win":     Win,
	"windows": Win,
	"win32":   Win,
}

// NormalizeArch converts GOARCH values and common aliases to xulpack
// architecture names.
func NormalizeArch(arch string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64":
		return AMD64, nil
	case "386", "i386", "i686", "ia32", "x86":
		return I386, nil
	case "arm64", "aarch64":
		return ARM64, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %q (supported: amd64, 386, arm64)", arch)
	}
}

// NormalizePlatform converts platform names and aliases to osx, linux or win.
func NormalizePlatform(name string) (string, error) {
	if p, ok := platformAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform: %q (supported: osx, linux, win)", name)
}

func platformFromGOOS(goos string) string {
	if p, err := NormalizePlatform(goos); err == nil {
		return p
	}
	return goos
}

// normalizeID converts distro IDs to lowercase for consistency.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
