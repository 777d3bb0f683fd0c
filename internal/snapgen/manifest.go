package snapgen

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Job generates one snapshot file from one source file.
type Job struct {
	// Source is the Go file declaring the state constants.
	Source string `yaml:"source"`
	// Machine overrides the machine name, which defaults to the source base name.
	Machine string `yaml:"machine,omitempty"`
	// Output defaults to <machine>_snapshot.go next to Source.
	Output string `yaml:"output,omitempty"`
	// Type overrides the state identifier type name.
	Type string `yaml:"type,omitempty"`
}

// Manifest lists generation jobs.
type Manifest struct {
	Jobs []Job `yaml:"jobs"`
}

// LoadManifest reads a manifest file. Relative paths inside it are resolved
// against the manifest's directory.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	m, err := parseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range m.Jobs {
		m.Jobs[i].Source = resolve(base, m.Jobs[i].Source)
		if m.Jobs[i].Output != "" {
			m.Jobs[i].Output = resolve(base, m.Jobs[i].Output)
		}
	}
	return m, nil
}

func parseManifest(data []byte) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode: %w", err)
	}
	if len(m.Jobs) == 0 {
		return Manifest{}, errors.New("no jobs")
	}
	for i, job := range m.Jobs {
		if job.Source == "" {
			return Manifest{}, fmt.Errorf("job %d: source is required", i)
		}
	}
	return m, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
