package platform

import (
	"context"
	"runtime"
	"testing"
)

func TestRealDetector_Detect(t *testing.T) {
	info, err := NewDetector().Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %v, want %v", info.OS, runtime.GOOS)
	}
	if info.Arch != AMD64 && info.Arch != ARM64 && info.Arch != I386 {
		t.Errorf("Arch = %v, want amd64, 386 or arm64", info.Arch)
	}
	if info.ArchRaw != runtime.GOARCH {
		t.Errorf("ArchRaw = %v, want %v", info.ArchRaw, runtime.GOARCH)
	}

	// On Linux, distro fields may be empty (graceful fallback), but a
	// detected platform always comes with a family.
	if runtime.GOOS == "linux" && info.Platform != "" && info.Family == "" {
		t.Error("Family should be set when Platform is set")
	}
	if runtime.GOOS != "linux" && (info.Platform != "" || info.Family != "" || info.Version != "") {
		t.Errorf("distro fields should be empty on non-Linux, got %+v", info)
	}
}

func TestRealDetector_CancelledContext(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("distro detection only runs on Linux")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either gopsutil notices the cancellation or it answers from cached
	// files first; both are acceptable, a panic is not.
	info, err := NewDetector().Detect(ctx)
	if err == nil && info == nil {
		t.Error("Detect() returned neither info nor error")
	}
}

func TestInfo_Target(t *testing.T) {
	tests := []struct {
		info *Info
		want Target
	}{
		{&Info{OS: "darwin", Arch: ARM64}, Target{Platform: OSX, Arch: ARM64}},
		{&Info{OS: "linux", Arch: AMD64}, Target{Platform: Linux, Arch: AMD64}},
		{&Info{OS: "windows", Arch: I386}, Target{Platform: Win, Arch: I386}},
		{&Info{OS: "freebsd", Arch: AMD64}, Target{Platform: "freebsd", Arch: AMD64}},
	}

	for _, tt := range tests {
		if got := tt.info.Target(); got != tt.want {
			t.Errorf("%s Target() = %v, want %v", tt.info.OS, got, tt.want)
		}
	}
}

func TestInfo_OSMethods(t *testing.T) {
	tests := []struct {
		os                    string
		linux, macOS, windows bool
	}{
		{"linux", true, false, false},
		{"darwin", false, true, false},
		{"windows", false, false, true},
	}

	for _, tt := range tests {
		info := &Info{OS: tt.os}
		if info.IsLinux() != tt.linux || info.IsMacOS() != tt.macOS || info.IsWindows() != tt.windows {
			t.Errorf("%s: IsLinux=%v IsMacOS=%v IsWindows=%v", tt.os, info.IsLinux(), info.IsMacOS(), info.IsWindows())
		}
	}
}
