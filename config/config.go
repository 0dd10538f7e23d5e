// Package config provides configuration loading and management for sitemark.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"

	"github.com/sitemark/sitemark/render"
)

// Config represents the complete sitemark configuration
type Config struct {
	// SplitOn is the heading level (1-6) that opens a new section
	SplitOn int `yaml:"split_on"`
	// MinLength is the text length below which a section counts as short
	MinLength int `yaml:"min_length"`
	// CombineShort merges short sections into their neighbors
	CombineShort bool `yaml:"combine_short"`

	// RemoveSelectors are CSS selectors whose matches are pruned
	RemoveSelectors []string `yaml:"remove_selectors"`
	// PreserveSelectors are CSS selectors whose matches survive pruning
	PreserveSelectors []string `yaml:"preserve_selectors"`
	// Readability runs article extraction before selector filtering
	Readability bool `yaml:"readability"`

	Images ImagesConfig `yaml:"images"`
	Code   CodeConfig   `yaml:"code"`

	// DomainFolders groups output under a folder named after the source domain
	DomainFolders bool `yaml:"domain_folders"`
	// IncludeSubdomains adds a subdomain subfolder above the domain folder
	IncludeSubdomains bool `yaml:"include_subdomains"`
	// SanitizeChars replaces characters unsafe in folder names
	SanitizeChars string `yaml:"sanitize_chars"`
	// FallbackFolder is used when no domain can be derived
	FallbackFolder string `yaml:"fallback_folder"`
	// DateFolders adds a YYYY-MM-DD folder level above the domain folder
	DateFolders bool `yaml:"date_folders"`

	// ReadmeIndex emits a README.md listing every generated file
	ReadmeIndex bool      `yaml:"readme_index"`
	TOC         TOCConfig `yaml:"toc"`

	Style render.Style `yaml:"style"`
	Fetch FetchConfig  `yaml:"fetch"`

	// OutputDir is the root directory generated files are written under
	OutputDir string `yaml:"output_dir"`
}

// ImagesConfig configures asset downloading
type ImagesConfig struct {
	// Download enables fetching referenced images to local files
	Download bool `yaml:"download"`
	// BasePath is the directory assets land in, relative to the page directory
	BasePath string `yaml:"base_path"`
	// SkipTypes lists extensions (".svg") or glob patterns ("*.gif") never downloaded
	SkipTypes []string `yaml:"skip_types"`
	// Concurrency bounds parallel downloads
	Concurrency int `yaml:"concurrency"`
	// Timeout is the per-asset download timeout
	Timeout Duration `yaml:"timeout"`
}

// CodeConfig configures code block language handling
type CodeConfig struct {
	// DetectLanguage analyzes unlabeled code blocks to guess a language
	DetectLanguage bool `yaml:"detect_language"`
	// DefaultLanguage labels blocks nothing else could classify
	DefaultLanguage string `yaml:"default_language"`
}

// TOCConfig configures the table of contents nested under each README entry
type TOCConfig struct {
	Enabled  bool `yaml:"enabled"`
	MaxDepth int  `yaml:"max_depth"`
}

// FetchConfig configures page retrieval
type FetchConfig struct {
	// Timeout is the maximum time for a single page fetch
	Timeout Duration `yaml:"timeout"`
	// Wait is an extra delay after load before the page is captured (JS rendering only)
	Wait Duration `yaml:"wait"`
	// WaitSelector blocks capture until the selector matches (JS rendering only)
	WaitSelector string `yaml:"wait_selector"`
	// Scroll scrolls to the bottom of the page before capture to trigger lazy content
	Scroll bool `yaml:"scroll"`
	// RenderJS fetches through a headless browser instead of a plain HTTP GET
	RenderJS bool `yaml:"render_js"`
	// UserAgent is sent with every request
	UserAgent string `yaml:"user_agent"`
	// MaxContentSize caps the response body in bytes
	MaxContentSize int64 `yaml:"max_content_size"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SplitOn: 1,
		Images: ImagesConfig{
			Download:    true,
			BasePath:    "assets",
			Concurrency: 4,
			Timeout:     Duration(30 * time.Second),
		},
		Code: CodeConfig{
			DetectLanguage: true,
		},
		DomainFolders:     true,
		IncludeSubdomains: true,
		SanitizeChars:     "_",
		FallbackFolder:    "unknown_domain",
		ReadmeIndex:       true,
		TOC: TOCConfig{
			Enabled:  true,
			MaxDepth: 2,
		},
		Style: render.DefaultStyle(),
		Fetch: FetchConfig{
			Timeout:        Duration(30 * time.Second),
			UserAgent:      "sitemark/1.0",
			MaxContentSize: 10 << 20,
		},
		OutputDir: "./docs",
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.SplitOn < 1 || c.SplitOn > 6 {
		return fmt.Errorf("split_on must be between 1 and 6")
	}
	if c.MinLength < 0 {
		return fmt.Errorf("min_length must not be negative")
	}
	if c.Images.Concurrency < 1 {
		return fmt.Errorf("images.concurrency must be at least 1")
	}
	if c.Images.Timeout <= 0 {
		return fmt.Errorf("images.timeout must be positive")
	}
	if c.TOC.MaxDepth < 1 || c.TOC.MaxDepth > 6 {
		return fmt.Errorf("toc.max_depth must be between 1 and 6")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxContentSize < 0 {
		return fmt.Errorf("fetch.max_content_size must not be negative")
	}
	for _, sel := range c.RemoveSelectors {
		if _, err := cascadia.Parse(sel); err != nil {
			return fmt.Errorf("remove_selectors: invalid selector %q: %w", sel, err)
		}
	}
	for _, sel := range c.PreserveSelectors {
		if _, err := cascadia.Parse(sel); err != nil {
			return fmt.Errorf("preserve_selectors: invalid selector %q: %w", sel, err)
		}
	}
	if err := c.Style.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file layered over defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.applyFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

// applyFile unmarshals a YAML file over the receiver; keys present in the
// file override, absent keys keep their current values. Unrecognized keys
// are ignored.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
