package format

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the filename looked for in each search-path directory.
const ManifestFile = "FORMATS.yml"

// manifest mirrors the YAML layout of a FORMATS.yml file.
type manifest struct {
	Formats []struct {
		ID          string `yaml:"id"`
		Description string `yaml:"description"`
		DefaultFile string `yaml:"default-filename"`
	} `yaml:"formats"`
}

// LoadManifest registers all formats declared in the manifest at path.
func (r *Registry) LoadManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest %s: %w", path, err)
	}

	for _, f := range m.Formats {
		info := Info{
			Name:        f.ID,
			Description: f.Description,
			DefaultFile: f.DefaultFile,
		}
		if err := r.Register(info); err != nil {
			return fmt.Errorf("manifest %s: %w", path, err)
		}
	}
	return nil
}

// LoadAll scans searchPaths for manifest files and registers every
// format found. Directories without a manifest are skipped; a malformed
// manifest is an error.
func (r *Registry) LoadAll(searchPaths []string) error {
	for _, dir := range searchPaths {
		path := filepath.Join(dir, ManifestFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := r.LoadManifest(path); err != nil {
			return err
		}
	}
	return nil
}
