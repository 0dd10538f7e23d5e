package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OutputDir != "./docs" {
		t.Errorf("expected default output_dir ./docs, got %s", cfg.OutputDir)
	}
	if cfg.SplitOn != 1 {
		t.Errorf("expected default split_on 1, got %d", cfg.SplitOn)
	}
	if cfg.CombineShort {
		t.Error("expected combine_short disabled by default")
	}
	if !cfg.Images.Download {
		t.Error("expected image download enabled by default")
	}
	if cfg.Images.BasePath != "assets" {
		t.Errorf("expected default base_path assets, got %s", cfg.Images.BasePath)
	}
	if !cfg.DomainFolders {
		t.Error("expected domain_folders enabled by default")
	}
	if cfg.Fetch.Timeout.Std() != 30*time.Second {
		t.Errorf("expected default fetch timeout 30s, got %s", cfg.Fetch.Timeout)
	}
	if cfg.Style.Heading != "atx" {
		t.Errorf("expected default heading style atx, got %s", cfg.Style.Heading)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty output dir",
			modify:  func(c *Config) { c.OutputDir = "" },
			wantErr: true,
		},
		{
			name:    "zero fetch timeout",
			modify:  func(c *Config) { c.Fetch.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "split level too low",
			modify:  func(c *Config) { c.SplitOn = 0 },
			wantErr: true,
		},
		{
			name:    "split level too high",
			modify:  func(c *Config) { c.SplitOn = 7 },
			wantErr: true,
		},
		{
			name:    "negative min length",
			modify:  func(c *Config) { c.MinLength = -1 },
			wantErr: true,
		},
		{
			name:    "zero image concurrency",
			modify:  func(c *Config) { c.Images.Concurrency = 0 },
			wantErr: true,
		},
		{
			name:    "toc depth out of range",
			modify:  func(c *Config) { c.TOC.MaxDepth = 0 },
			wantErr: true,
		},
		{
			name:    "invalid remove selector",
			modify:  func(c *Config) { c.RemoveSelectors = []string{"div["} },
			wantErr: true,
		},
		{
			name:    "invalid preserve selector",
			modify:  func(c *Config) { c.PreserveSelectors = []string{":::"} },
			wantErr: true,
		},
		{
			name:    "valid selectors",
			modify:  func(c *Config) { c.RemoveSelectors = []string{"nav", ".sidebar", "#footer"} },
			wantErr: false,
		},
		{
			name:    "invalid heading style",
			modify:  func(c *Config) { c.Style.Heading = "fancy" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitemark.yaml")

	yaml := `
output_dir: docs
split_on: 2
min_length: 50
combine_short: true
remove_selectors:
  - nav
  - .sidebar
images:
  download: false
  skip_types:
    - .svg
    - "*.gif"
style:
  bullet: "*"
fetch:
  timeout: 10s
  render_js: true
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.OutputDir != "docs" {
		t.Errorf("expected output_dir docs, got %s", cfg.OutputDir)
	}
	if cfg.SplitOn != 2 {
		t.Errorf("expected split_on 2, got %d", cfg.SplitOn)
	}
	if !cfg.CombineShort {
		t.Error("expected combine_short enabled")
	}
	if len(cfg.RemoveSelectors) != 2 {
		t.Errorf("expected 2 remove_selectors, got %d", len(cfg.RemoveSelectors))
	}
	if cfg.Images.Download {
		t.Error("expected image download disabled")
	}
	if len(cfg.Images.SkipTypes) != 2 {
		t.Errorf("expected 2 skip_types, got %d", len(cfg.Images.SkipTypes))
	}
	if cfg.Style.Bullet != "*" {
		t.Errorf("expected bullet *, got %s", cfg.Style.Bullet)
	}
	if cfg.Fetch.Timeout.Std() != 10*time.Second {
		t.Errorf("expected fetch timeout 10s, got %s", cfg.Fetch.Timeout)
	}
	if !cfg.Fetch.RenderJS {
		t.Error("expected render_js enabled")
	}

	// Untouched keys keep their defaults
	if cfg.Images.BasePath != "assets" {
		t.Errorf("expected default base_path assets, got %s", cfg.Images.BasePath)
	}
	if cfg.Style.Heading != "atx" {
		t.Errorf("expected default heading style atx, got %s", cfg.Style.Heading)
	}
}

func TestLoadFromFile_UnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	yaml := "split_on: 3\nsome_future_option: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.SplitOn != 3 {
		t.Errorf("expected split_on 3, got %d", cfg.SplitOn)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("images: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestDurationForms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "durations.yaml")

	yaml := `
fetch:
  timeout: 1m30s
images:
  timeout: 5000000000
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Fetch.Timeout.Std() != 90*time.Second {
		t.Errorf("expected fetch timeout 1m30s, got %s", cfg.Fetch.Timeout)
	}
	if cfg.Images.Timeout.Std() != 5*time.Second {
		t.Errorf("expected image timeout 5s, got %s", cfg.Images.Timeout)
	}
}

func TestDurationInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("fetch:\n  timeout: soon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.OutputDir = "exported"
	cfg.MinLength = 250

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.OutputDir != "exported" {
		t.Errorf("expected output_dir exported, got %s", loaded.OutputDir)
	}
	if loaded.MinLength != 250 {
		t.Errorf("expected min_length 250, got %d", loaded.MinLength)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	loader := NewLoader(nil)
	if err := loader.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}

	path := loader.userConfigPath()
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.OutputDir != DefaultConfig().OutputDir {
		t.Errorf("expected default output_dir, got %s", loaded.OutputDir)
	}

	// A second call must not touch the existing file.
	if err := os.WriteFile(path, []byte("output_dir: kept\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := loader.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() second call error = %v", err)
	}
	loaded, err = LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.OutputDir != "kept" {
		t.Errorf("existing user config was overwritten, output_dir = %s", loaded.OutputDir)
	}
}
