package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/heirloom-app/heirloom/internal/crop"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given; it may be absent.
const DefaultPath = "heirloom.yaml"

// Config is the service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Crop    CropConfig    `yaml:"crop"`
	Family  FamilyConfig  `yaml:"family"`
	Prompts PromptsConfig `yaml:"prompts"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port           string `yaml:"port"`
	UploadsDir     string `yaml:"uploads_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type CropConfig struct {
	ViewportDiameter float64 `yaml:"viewport_diameter"`
	OutputSize       int     `yaml:"output_size"`
	// Quality is the JPEG quality, 1-100.
	Quality int `yaml:"quality"`
}

type FamilyConfig struct {
	File string `yaml:"file"`
	// Database, when set, stores the directory in SQLite seeded from File.
	Database string `yaml:"database"`
	// Watch reloads File on change; ignored with Database.
	Watch bool `yaml:"watch"`
}

type PromptsConfig struct {
	// Catalog is a .yaml, .jsonl or .parquet file; empty uses the built-in catalog.
	Catalog  string `yaml:"catalog"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8888",
			UploadsDir:     "uploads",
			MaxUploadBytes: crop.DefaultMaxSourceBytes,
		},
		Crop: CropConfig{
			ViewportDiameter: crop.DefaultViewportDiameter,
			OutputSize:       crop.DefaultOutputSize,
			Quality:          crop.DefaultQuality,
		},
		Family: FamilyConfig{
			File: "family.yaml",
		},
		Prompts: PromptsConfig{
			Provider: "catalog",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and applies HEIRLOOM_* environment
// overrides. A missing DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("HEIRLOOM_PORT", &c.Server.Port)
	str("HEIRLOOM_UPLOADS_DIR", &c.Server.UploadsDir)
	str("HEIRLOOM_FAMILY_FILE", &c.Family.File)
	str("HEIRLOOM_FAMILY_DB", &c.Family.Database)
	str("HEIRLOOM_PROMPT_CATALOG", &c.Prompts.Catalog)
	str("HEIRLOOM_PROMPT_PROVIDER", &c.Prompts.Provider)
	str("HEIRLOOM_PROMPT_MODEL", &c.Prompts.Model)
	str("HEIRLOOM_LOG_LEVEL", &c.Log.Level)
	str("HEIRLOOM_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("HEIRLOOM_FAMILY_WATCH"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HEIRLOOM_FAMILY_WATCH: %w", err)
		}
		c.Family.Watch = b
	}
	if v, ok := lookup("HEIRLOOM_VIEWPORT_DIAMETER"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("HEIRLOOM_VIEWPORT_DIAMETER: %w", err)
		}
		c.Crop.ViewportDiameter = f
	}
	ints := map[string]*int{
		"HEIRLOOM_OUTPUT_SIZE":  &c.Crop.OutputSize,
		"HEIRLOOM_JPEG_QUALITY": &c.Crop.Quality,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if !(c.Crop.ViewportDiameter > 0) {
		return fmt.Errorf("crop.viewport_diameter must be positive, got %v", c.Crop.ViewportDiameter)
	}
	if c.Crop.OutputSize <= 0 {
		return fmt.Errorf("crop.output_size must be positive, got %d", c.Crop.OutputSize)
	}
	if c.Crop.Quality < 1 || c.Crop.Quality > 100 {
		return fmt.Errorf("crop.quality must be between 1 and 100, got %d", c.Crop.Quality)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Geometry returns the crop geometry.
func (c *Config) Geometry() crop.Geometry {
	return crop.Geometry{
		ViewportDiameter: c.Crop.ViewportDiameter,
		OutputSize:       c.Crop.OutputSize,
	}
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
