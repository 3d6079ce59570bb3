// Package platform names the packaging targets xulpack builds for and
// detects the host it runs on.
//
// A Target is an (osx|linux|win, amd64|386|arm64) pair. Its Defines seed the
// preprocessor symbol table, so "#ifdef XP_OSX" selects macOS-only lines.
// Host detection uses runtime.GOOS/GOARCH plus gopsutil for Linux
// distribution details, with graceful fallback when the latter fails.
package platform

import "context"

// Packaging platforms.
const (
	OSX   = "osx"
	Linux = "linux"
	Win   = "win"
)

// Architectures.
const (
	AMD64 = "amd64"
	I386  = "386"
	ARM64 = "arm64"
)

// Linux distribution family constants.
// These represent canonical family names for grouping related distributions.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info describes the host xulpack runs on.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "386", "arm64" (normalized)
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Target returns the packaging target matching the host.
func (i *Info) Target() Target {
	return Target{Platform: platformFromGOOS(i.OS), Arch: i.Arch}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
