package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"encore/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ENCORE_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "encore", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "encore", "media"); cfg.Paths.StorageRoot != want {
		t.Fatalf("storage root = %q, want %q", cfg.Paths.StorageRoot, want)
	}
	if cfg.Paths.APIBind != "127.0.0.1:5000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Separation.Binary != "demucs" || cfg.Separation.Model != "htdemucs" {
		t.Fatalf("unexpected separation defaults: %+v", cfg.Separation)
	}
	if cfg.Separation.StemSuffix != "no_vocals.wav" {
		t.Fatalf("unexpected stem suffix: %q", cfg.Separation.StemSuffix)
	}
	if cfg.Transcription.Model != "medium" {
		t.Fatalf("unexpected transcription model: %q", cfg.Transcription.Model)
	}
	if cfg.FFmpeg.DenoiseFilter != "highpass=f=80,afftdn=nf=-25,dynaudnorm" {
		t.Fatalf("unexpected denoise filter: %q", cfg.FFmpeg.DenoiseFilter)
	}
	if cfg.FFmpeg.MixFilter != "amix=inputs=2:duration=shortest" {
		t.Fatalf("unexpected mix filter: %q", cfg.FFmpeg.MixFilter)
	}
	if cfg.MaxUploadBytes() != 100<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ENCORE_API_TOKEN", "from-env")

	configPath := filepath.Join(t.TempDir(), "encore.toml")
	payload := struct {
		Paths struct {
			StorageRoot string `toml:"storage_root"`
			APIBind     string `toml:"api_bind"`
		} `toml:"paths"`
		Separation struct {
			Model string `toml:"model"`
		} `toml:"separation"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}{}
	payload.Paths.StorageRoot = "~/karaoke"
	payload.Paths.APIBind = "0.0.0.0:8080"
	payload.Separation.Model = "mdx_extra"
	payload.Logging.Format = " JSON "
	payload.Logging.Level = "Debug"

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.StorageRoot != filepath.Join(tempHome, "karaoke") {
		t.Fatalf("storage root not expanded: %q", cfg.Paths.StorageRoot)
	}
	if cfg.Separation.Model != "mdx_extra" {
		t.Fatalf("model override lost: %q", cfg.Separation.Model)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Paths.APIToken != "from-env" {
		t.Fatalf("expected env token fallback, got %q", cfg.Paths.APIToken)
	}
	if cfg.Separation.Binary != "demucs" {
		t.Fatalf("unset key should keep default, got %q", cfg.Separation.Binary)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"separation binary", func(c *config.Config) { c.Separation.Binary = "" }, "separation.binary"},
		{"transcription model", func(c *config.Config) { c.Transcription.Model = "" }, "transcription.model"},
		{"upload limit", func(c *config.Config) { c.Limits.MaxUploadMB = 0 }, "limits.max_upload_mb"},
		{"api bind", func(c *config.Config) { c.Paths.APIBind = "nonsense" }, "paths.api_bind"},
		{"device", func(c *config.Config) { c.Transcription.Device = "tpu" }, "transcription.device"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.StorageRoot = t.TempDir()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvalidLogFormat(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nformat = \"yaml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected invalid log format to fail")
	}
}

func TestCreateSampleLoadsCleanly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Separation.StemSuffix != "no_vocals.wav" {
		t.Fatalf("unexpected sample stem suffix %q", cfg.Separation.StemSuffix)
	}
}

func TestEnsureDirectoriesCreatesLayout(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageRoot = filepath.Join(root, "media")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.InstrumentalsPath(), cfg.RecordingsPath(), filepath.Join(cfg.Paths.StorageRoot, "uploads"), cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestEncodeMasksToken(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIToken = "secret"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Fatalf("token leaked in %s", data)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatal("Encode must not mutate the receiver")
	}
}
