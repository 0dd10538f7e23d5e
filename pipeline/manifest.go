package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest records one conversion run: every generated file and asset with
// its SHA-256 checksum, keyed by path relative to the output root.
type Manifest struct {
	RunID       string            `yaml:"run_id"`
	URL         string            `yaml:"url"`
	Title       string            `yaml:"title,omitempty"`
	GeneratedAt time.Time         `yaml:"generated_at"`
	Files       map[string]string `yaml:"files"`
	Assets      map[string]string `yaml:"assets,omitempty"`
}

// Materialize writes the result's files, assets, and manifest under
// outputDir.
func Materialize(result *Result, outputDir string) error {
	for _, f := range result.Files {
		if err := writeFile(filepath.Join(outputDir, filepath.FromSlash(f.Path)), f.Body); err != nil {
			return err
		}
	}
	for _, a := range result.Assets {
		if err := writeFile(filepath.Join(outputDir, filepath.FromSlash(a.Path)), a.Data); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(result.Manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(outputDir, filepath.FromSlash(result.Dir), ManifestFilename)
	if err := writeFile(manifestPath, data); err != nil {
		return err
	}
	return nil
}

// LoadManifest reads a manifest written by Materialize.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Verify re-hashes every file and asset the manifest names and reports the
// first missing or modified entry.
func (m *Manifest) Verify(outputDir string) error {
	check := func(entries map[string]string) error {
		for relPath, want := range entries {
			data, err := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(relPath)))
			if err != nil {
				return fmt.Errorf("verify %s: %w", relPath, err)
			}
			if got := checksum(data); got != want {
				return fmt.Errorf("verify %s: checksum mismatch (got %s, want %s)", relPath, got, want)
			}
		}
		return nil
	}

	if err := check(m.Files); err != nil {
		return err
	}
	return check(m.Assets)
}

// writeFile writes data, creating parent directories as needed.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
