// Package manifest loads batch fetch manifests.
//
// A manifest is a YAML file naming the resources to fetch:
//
//	items:
//	  - location: https://example.com/releases/tool-1.2.bin
//	    dest: bin/tool
//	    checksum: sha256:6c3c6...
//	  - location: oci://ghcr.io/org/data:v4
//
// Destination paths are relative to the directory the fetch runs in and
// default to the location's short name.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/Azzadd/fetchmeter/core"
	"github.com/Azzadd/fetchmeter/internal/safepath"
)

// Manifest is a parsed batch fetch manifest.
type Manifest struct {
	Items []Item `yaml:"items"`
}

// Item names one resource to fetch and where to put it.
type Item struct {
	Location string `yaml:"location"`
	Dest     string `yaml:"dest,omitempty"`
	Checksum string `yaml:"checksum,omitempty"`
}

// Destination returns the local path the item is written to: Dest when
// set, otherwise the location's short name.
func (it Item) Destination() string {
	if it.Dest != "" {
		return it.Dest
	}
	location, err := core.ParseLocation(it.Location)
	if err != nil {
		return ""
	}
	return location.ShortName()
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks every item for a parseable location, a safe destination
// path, a well-formed checksum, and destination uniqueness.
func (m *Manifest) Validate() error {
	if len(m.Items) == 0 {
		return errors.New("manifest: no items")
	}

	seen := make(map[string]int, len(m.Items))
	for i, it := range m.Items {
		if it.Location == "" {
			return fmt.Errorf("manifest: item %d: location is required", i)
		}
		if _, err := core.ParseLocation(it.Location); err != nil {
			return fmt.Errorf("manifest: item %d: %w", i, err)
		}

		dest := it.Destination()
		if err := safepath.Check(dest); err != nil {
			return fmt.Errorf("manifest: item %d: %w", i, err)
		}
		if prev, ok := seen[dest]; ok {
			return fmt.Errorf("manifest: item %d: destination %q already used by item %d", i, dest, prev)
		}
		seen[dest] = i

		if it.Checksum != "" {
			if _, err := digest.Parse(it.Checksum); err != nil {
				return fmt.Errorf("manifest: item %d: checksum: %w", i, err)
			}
		}
	}

	return nil
}
