package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ManifestName is the app manifest file inside the app directory.
const ManifestName = "package.json"

// App is the application being packaged, read from its package.json.
type App struct {
	// Dir is the app code directory.
	Dir string `json:"-"`

	Name    string `json:"name"`
	Title   string `json:"title"`
	Version string `json:"version"`
	BuildID string `json:"build_id"`

	Packaging Packaging `json:"xulpack"`
}

// Packaging holds the packaging options of the manifest's "xulpack" key.
type Packaging struct {
	// Preprocess lists path suffixes of files run through the preprocessor.
	Preprocess []string `json:"preprocess"`
	// Exclude lists path suffixes of files that are not copied.
	Exclude []string `json:"exclude"`
	// Defines are extra symbols added to every target's table.
	Defines map[string]string `json:"defines"`
}

// LoadApp reads the manifest of the app in dir and fills defaults: the name
// falls back to the lowercased directory name, the title to the name and the
// build ID to the current Unix time in milliseconds.
func LoadApp(dir string) (*App, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve app dir: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(abs, ManifestName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("missing %s app manifest in %s", ManifestName, abs)
		}
		return nil, fmt.Errorf("read app manifest: %w", err)
	}

	var app App
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	app.Dir = abs

	if app.Name == "" {
		app.Name = strings.ToLower(filepath.Base(abs))
	}
	if app.Title == "" {
		app.Title = app.Name
	}
	if app.BuildID == "" {
		app.BuildID = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	if strings.ContainsAny(app.Title, `/\`) || app.Title == "." || app.Title == ".." {
		return nil, fmt.Errorf("app title %q cannot be used as a directory name", app.Title)
	}
	return &app, nil
}
