package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoManifest is returned by Load when the manifest file does not exist.
var ErrNoManifest = errors.New("build manifest not found")

// Manifest maps logical asset names to fingerprinted paths relative to the
// client build root. A Manifest is never modified after it is built or loaded.
type Manifest struct {
	Version string            `json:"version"`
	Entries map[string]string `json:"entries"`
}

// Load reads a manifest written by Build.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("manifest %s has no version", path)
	}
	if m.Entries == nil {
		m.Entries = map[string]string{}
	}
	return &m, nil
}

// Write stores the manifest as indented JSON, creating parent directories.
func (m *Manifest) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Resolve returns the URL path of a logical asset. Unknown names are returned
// as an absolute path unchanged so that templates still emit a usable URL.
func (m *Manifest) Resolve(name string) string {
	name = strings.TrimPrefix(name, "/")
	if m != nil {
		if resolved, ok := m.Entries[name]; ok {
			return "/" + resolved
		}
	}
	return "/" + name
}

// Has reports whether the manifest contains the logical name.
func (m *Manifest) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Entries[strings.TrimPrefix(name, "/")]
	return ok
}

// Names returns the logical names in sorted order.
func (m *Manifest) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.Entries))
	for name := range m.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
