// Package manifest handles lattice.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a lattice.toml project configuration.
type Manifest struct {
	Project     Project     `toml:"project"`
	Execution   Execution   `toml:"execution"`
	Persistence Persistence `toml:"persistence"`

	// Dir is the directory containing the lattice.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Execution configures the executive.
type Execution struct {
	// PropagationLimit bounds re-executions per update-propagation pass.
	// Zero disables the bound.
	PropagationLimit int `toml:"propagation-limit"`

	// ReplicationPolicy is the default length policy for zipped
	// replication: "shortest" or "longest".
	ReplicationPolicy string `toml:"replication-policy"`
}

// Persistence configures the on-disk procedure store.
type Persistence struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns a manifest with default settings.
func Default() *Manifest {
	return &Manifest{
		Execution: Execution{ReplicationPolicy: "shortest"},
	}
}

// Load parses a lattice.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "lattice.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Execution.ReplicationPolicy == "" {
		m.Execution.ReplicationPolicy = "shortest"
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks field values that TOML decoding cannot.
func (m *Manifest) Validate() error {
	switch m.Execution.ReplicationPolicy {
	case "shortest", "longest":
	default:
		return fmt.Errorf("invalid replication-policy %q (want \"shortest\" or \"longest\")", m.Execution.ReplicationPolicy)
	}
	if m.Execution.PropagationLimit < 0 {
		return fmt.Errorf("propagation-limit must be non-negative, got %d", m.Execution.PropagationLimit)
	}
	if m.Persistence.Enabled && m.Persistence.Path == "" {
		return fmt.Errorf("persistence enabled but no path configured")
	}
	return nil
}

// FindAndLoad walks up from startDir to find a lattice.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "lattice.toml")); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
