package platform

import (
	"fmt"
	"strings"
)

// Target is one packaging target.
type Target struct {
	Platform string
	Arch     string
}

// String renders the target as "platform/arch".
func (t Target) String() string {
	return t.Platform + "/" + t.Arch
}

// DefaultArch is the architecture used when a target names none. macOS
// runtimes are universal and resolve through the "all" descriptor entry.
func DefaultArch(platform string) string {
	if platform == OSX {
		return ARM64
	}
	return AMD64
}

// ParseTarget builds a Target from a platform name and an optional arch.
func ParseTarget(platform, arch string) (Target, error) {
	p, err := NormalizePlatform(platform)
	if err != nil {
		return Target{}, err
	}
	if strings.TrimSpace(arch) == "" {
		return Target{Platform: p, Arch: DefaultArch(p)}, nil
	}
	a, err := NormalizeArch(arch)
	if err != nil {
		return Target{}, err
	}
	return Target{Platform: p, Arch: a}, nil
}

// ParseTargets parses a comma-separated list such as "linux,osx/arm64,win/386".
// Duplicates are dropped; order is preserved.
func ParseTargets(list string) ([]Target, error) {
	var targets []Target
	seen := make(map[Target]bool)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		p, a, _ := strings.Cut(item, "/")
		t, err := ParseTarget(p, a)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", item, err)
		}
		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets given")
	}
	return targets, nil
}

// Defines returns the preprocessor symbols for the target: XP_OSX, XP_LINUX
// or XP_WIN, plus XP_ARCH_<ARCH>, all set to "1".
func (t Target) Defines() map[string]string {
	defines := map[string]string{
		"XP_ARCH_" + strings.ToUpper(t.Arch): "1",
	}
	switch t.Platform {
	case OSX:
		defines["XP_OSX"] = "1"
	case Linux:
		defines["XP_LINUX"] = "1"
	case Win:
		defines["XP_WIN"] = "1"
	}
	return defines
}
