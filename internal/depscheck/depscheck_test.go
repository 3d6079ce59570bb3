package depscheck

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/command"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

// fakeRunner reports a fixed set of executables as installed.
type fakeRunner struct {
	installed map[string]bool
	lookups   []string
}

func newFakeRunner(tools ...string) *fakeRunner {
	r := &fakeRunner{installed: make(map[string]bool)}
	for _, t := range tools {
		r.installed[t] = true
	}
	return r
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (*command.Result, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	r.lookups = append(r.lookups, name)
	if r.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name         string
		platform     string
		installed    []string
		wantFeatures map[string]bool
		wantMissing  []string
	}{
		{
			name:      "osx complete",
			platform:  platform.OSX,
			installed: []string{"sips", "tar", "bzip2", "iconutil"},
			wantFeatures: map[string]bool{
				ResizeImage: true, Compression: true, IconTool: true, ResourceEdit: true,
			},
		},
		{
			name:      "osx missing bzip2",
			platform:  platform.OSX,
			installed: []string{"sips", "tar", "iconutil"},
			wantFeatures: map[string]bool{
				ResizeImage: true, Compression: false, IconTool: true, ResourceEdit: true,
			},
			wantMissing: []string{"bzip2"},
		},
		{
			name:     "linux bare",
			platform: platform.Linux,
			wantFeatures: map[string]bool{
				ResizeImage: false, Compression: false, IconTool: true, ResourceEdit: true,
			},
			wantMissing: []string{"convert", "tar", "gzip"},
		},
		{
			name:      "win needs rcedit",
			platform:  platform.Win,
			installed: []string{"convert", "zip", "icotool"},
			wantFeatures: map[string]bool{
				ResizeImage: true, Compression: true, IconTool: true, ResourceEdit: false,
			},
			wantMissing: []string{"rcedit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := Check(context.Background(), newFakeRunner(tt.installed...), []string{tt.platform}, nil)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1", len(results))
			}
			r := results[0]
			for feature, want := range tt.wantFeatures {
				if got := r.Features[feature]; got != want {
					t.Errorf("Features[%s] = %v, want %v", feature, got, want)
				}
			}
			if !slices.Equal(r.Missing, tt.wantMissing) {
				t.Errorf("Missing = %v, want %v", r.Missing, tt.wantMissing)
			}
			if r.OK() != (len(tt.wantMissing) == 0) {
				t.Errorf("OK() = %v", r.OK())
			}
		})
	}
}

func TestCheck_MissingToolListedOnce(t *testing.T) {
	// convert backs resize-image on both linux and win, but each platform
	// result lists it at most once.
	results, err := Check(context.Background(), newFakeRunner(), []string{platform.Linux, platform.Win}, nil)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	for _, r := range results {
		count := 0
		for _, m := range r.Missing {
			if m == "convert" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("%s: convert listed %d times", r.Platform, count)
		}
	}
}

func TestCheck_FeatureSubset(t *testing.T) {
	runner := newFakeRunner()
	results, err := Check(context.Background(), runner, []string{platform.OSX}, []string{IconTool})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if _, ok := results[0].Features[ResizeImage]; ok {
		t.Error("unchecked feature should be absent")
	}
	if !slices.Equal(runner.lookups, []string{"iconutil"}) {
		t.Errorf("lookups = %v, want [iconutil]", runner.lookups)
	}
}

func TestCheck_Errors(t *testing.T) {
	runner := newFakeRunner()
	if _, err := Check(context.Background(), runner, []string{"beos"}, nil); err == nil {
		t.Error("expected error for unsupported platform")
	}
	if _, err := Check(context.Background(), runner, []string{platform.Linux}, []string{"teleport"}); err == nil {
		t.Error("expected error for unknown feature")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Check(ctx, runner, []string{platform.Linux}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Check() error = %v, want context.Canceled", err)
	}
}

func TestReport(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })

	results := []Result{
		{
			Platform: platform.OSX,
			Features: map[string]bool{ResizeImage: true, Compression: false},
			Missing:  []string{"bzip2"},
		},
		{
			Platform: platform.Win,
			Features: map[string]bool{ResizeImage: true, Compression: true, IconTool: true, ResourceEdit: true},
		},
	}

	var buf bytes.Buffer
	if err := Report(&buf, results); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "resize-image") || !strings.Contains(lines[2], "Missing") {
		t.Errorf("header = %q", lines[2])
	}

	osx := lines[3]
	if !strings.HasPrefix(osx, "Mac OS X") {
		t.Errorf("osx row = %q", osx)
	}
	for _, want := range []string{symbolOK, symbolErr, symbolDot, "bzip2"} {
		if !strings.Contains(osx, want) {
			t.Errorf("osx row %q missing %q", osx, want)
		}
	}
	if win := lines[4]; strings.Contains(win, symbolErr) || strings.Count(win, symbolOK) != 4 {
		t.Errorf("win row = %q", win)
	}
}

func TestInstallHint(t *testing.T) {
	tests := []struct {
		name string
		info *platform.Info
		tool string
		want string
	}{
		{"debian", &platform.Info{OS: "linux", Family: platform.FamilyDebian}, "convert", "sudo apt-get install imagemagick"},
		{"fedora", &platform.Info{OS: "linux", Family: platform.FamilyFedora}, "icotool", "sudo dnf install icoutils"},
		{"arch", &platform.Info{OS: "linux", Family: platform.FamilyArch}, "zip", "sudo pacman -S zip"},
		{"unknown family", &platform.Info{OS: "linux", Family: platform.FamilyUnknown}, "zip", ""},
		{"macos brew", &platform.Info{OS: "darwin"}, "convert", "brew install imagemagick"},
		{"windows", &platform.Info{OS: "windows"}, "zip", ""},
		{"unknown tool", &platform.Info{OS: "linux", Family: platform.FamilyDebian}, "frobnicate", ""},
		{"nil info", nil, "zip", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstallHint(tt.info, tt.tool); got != tt.want {
				t.Errorf("InstallHint() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := InstallHint(nil, "iconutil"); !strings.Contains(got, "macOS") {
		t.Errorf("iconutil hint = %q", got)
	}
}
