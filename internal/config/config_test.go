package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `server:
  port: "9000"
crop:
  viewport_diameter: 280
  output_size: 512
prompts:
  provider: ollama
  model: llama3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Crop.OutputSize != 512 || cfg.Prompts.Provider != "ollama" {
		t.Errorf("cfg = %+v", cfg)
	}
	if g := cfg.Geometry(); g.ViewportDiameter != 280 {
		t.Errorf("geometry = %+v", g)
	}
	// Unset keys keep their defaults.
	if cfg.Crop.Quality != 90 || cfg.Server.UploadsDir != "uploads" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HEIRLOOM_PORT":              "7000",
		"HEIRLOOM_VIEWPORT_DIAMETER": "320.5",
		"HEIRLOOM_JPEG_QUALITY":      "75",
		"HEIRLOOM_PROMPT_PROVIDER":   "",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7000" || cfg.Crop.ViewportDiameter != 320.5 || cfg.Crop.Quality != 75 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Prompts.Provider != "catalog" {
		t.Errorf("empty env value overrode provider: %q", cfg.Prompts.Provider)
	}

	if err := Default().ApplyEnv(envMap(map[string]string{"HEIRLOOM_OUTPUT_SIZE": "big"})); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero viewport", func(c *Config) { c.Crop.ViewportDiameter = 0 }},
		{"negative output", func(c *Config) { c.Crop.OutputSize = -1 }},
		{"quality too high", func(c *Config) { c.Crop.Quality = 101 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("json output = %s", out)
	}
}

func TestApplyEnvFamily(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HEIRLOOM_FAMILY_DB":    "data/family.db",
		"HEIRLOOM_FAMILY_WATCH": "true",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Family.Database != "data/family.db" || !cfg.Family.Watch {
		t.Errorf("family = %+v", cfg.Family)
	}
	if err := Default().ApplyEnv(envMap(map[string]string{"HEIRLOOM_FAMILY_WATCH": "sometimes"})); err == nil {
		t.Error("expected parse error")
	}
}
