// Package config loads vrdx settings from a YAML file with environment and
// flag overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/vrdx/internal/logging"
)

// EnvLogLevel overrides log_level when set
const EnvLogLevel = "VRDX_LOG_LEVEL"

// Config holds user settings. Zero values are replaced by defaults on load.
type Config struct {
	LogLevel      string   `yaml:"log_level"`
	LogFormat     string   `yaml:"log_format"`
	Newline       string   `yaml:"newline"`
	Extensions    []string `yaml:"extensions"`
	IgnoredDirs   []string `yaml:"ignored_dirs"`
	InsertMarkers bool     `yaml:"insert_markers"`
	IndexPath     string   `yaml:"index_path"`
	Addr          string   `yaml:"addr"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		LogLevel:    "info",
		LogFormat:   "console",
		Newline:     "auto",
		Extensions:  []string{".md", ".markdown"},
		IgnoredDirs: []string{".git", ".hg", ".svn", ".venv", "__pycache__", "node_modules"},
		IndexPath:   filepath.Join(homeDir(), ".vrdx", "index.db"),
		Addr:        ":8080",
	}
}

// DefaultPath returns ~/.vrdx/config.yaml
func DefaultPath() string {
	return filepath.Join(homeDir(), ".vrdx", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load reads path over the defaults. A missing file is not an error. The
// environment is applied last and the result validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		var overlay Config
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = cfg.merge(overlay)
	}

	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) merge(o Config) Config {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.Newline != "" {
		c.Newline = o.Newline
	}
	if len(o.Extensions) > 0 {
		c.Extensions = o.Extensions
	}
	if o.IgnoredDirs != nil {
		c.IgnoredDirs = o.IgnoredDirs
	}
	if o.IndexPath != "" {
		c.IndexPath = expandHome(o.IndexPath)
	}
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	c.InsertMarkers = o.InsertMarkers
	return c
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir(), rest)
	}
	return path
}

// Validate checks enumerated options and required values
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.By(func(v any) error {
			_, err := logging.ParseLevel(v.(string))
			return err
		})),
		validation.Field(&c.LogFormat, validation.In("console", "json", "pretty")),
		validation.Field(&c.Newline, validation.In("auto", "lf", "crlf", "cr")),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.By(func(v any) error {
			if !strings.HasPrefix(v.(string), ".") {
				return errors.New("must start with a dot")
			}
			return nil
		}))),
		validation.Field(&c.IndexPath, validation.Required),
		validation.Field(&c.Addr, validation.Required),
	)
}

// NewlineSequence maps the newline option to its literal sequence. Auto maps
// to the empty string so callers fall back to detection.
func (c Config) NewlineSequence() string {
	switch c.Newline {
	case "lf":
		return "\n"
	case "crlf":
		return "\r\n"
	case "cr":
		return "\r"
	default:
		return ""
	}
}

// LoggingConfig returns the provider settings
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// Save writes c to path as YAML, creating the directory
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
