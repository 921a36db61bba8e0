package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Engine.Viewport.Width != 1280 || cfg.Engine.Viewport.Height != 800 {
		t.Errorf("Default viewport = %vx%v", cfg.Engine.Viewport.Width, cfg.Engine.Viewport.Height)
	}
	if cfg.Engine.RootFontSize != 16 {
		t.Errorf("Default root font size = %v, want 16", cfg.Engine.RootFontSize)
	}
	if cfg.Engine.Workers != 0 {
		t.Errorf("Default workers = %d, want 0", cfg.Engine.Workers)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("Default console level = %q", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `version: 1
engine:
  viewport:
    width: 375
  root_font_size: 10
  workers: 2
logging:
  console:
    level: debug
  file:
    level: debug
    destination: `+filepath.Join(dir, "test.log")+`
    mode: append
reporting:
  destination: `+filepath.Join(dir, "test-report.zip")+`
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Engine.Viewport.Width != 375 {
		t.Errorf("Width = %v, want 375", cfg.Engine.Viewport.Width)
	}
	// not in the file, kept from defaults
	if cfg.Engine.Viewport.Height != 800 {
		t.Errorf("Height = %v, want 800", cfg.Engine.Viewport.Height)
	}
	if cfg.Engine.RootFontSize != 10 || cfg.Engine.Workers != 2 {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("Mode = %q, want append", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid yaml", "version: 1\nengine:\n  workers: 2\n  invalid indent\n", "failed to process configuration file"},
		{"unknown field", "version: 1\nunknown_field: value\n", "unknown_field"},
		{"version", "version: 2\n", "Version"},
		{"negative viewport", "version: 1\nengine:\n  viewport:\n    width: -1\n", "Width"},
		{"zero font", "version: 1\nengine:\n  root_font_size: 0\n", "RootFontSize"},
		{"console level", "version: 1\nlogging:\n  console:\n    level: loud\n", "Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}
	if _, err := LoadConfiguration("", option); err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err := unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Engine.Viewport.Width = 640

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if !strings.Contains(string(data), "width: 640") {
		t.Errorf("Dump() output missing viewport width:\n%s", data)
	}

	back, err := unmarshalConfig(data, &Config{}, true)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if back.Engine != cfg.Engine {
		t.Errorf("Engine mismatch after dump/load: got %+v, want %+v", back.Engine, cfg.Engine)
	}
}

func TestLoggingConfig_Prepare(t *testing.T) {
	dir := t.TempDir()
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: filepath.Join(dir, "run.log"), Mode: "overwrite"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("hidden")
	log.Info("visible")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "visible") || strings.Contains(string(data), "hidden") {
		t.Errorf("unexpected log content:\n%s", data)
	}
}
