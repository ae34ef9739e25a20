package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the result of one config load: the path that was consulted, the
// effective configuration, and any non-fatal warnings collected on the way.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves the config path, reads and parses the file, and layers the
// result over the defaults. A missing file is not an error; outlay runs fine
// on defaults plus environment variables, so it only produces a warning.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		missing := Warning{Message: fmt.Sprintf("config %q not found; using defaults", path)}
		return Loaded{Path: path, Config: Default(), Warnings: []Warning{missing}}, nil
	}
	if err != nil {
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}
