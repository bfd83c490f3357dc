package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageRoot == "" {
		return errors.New("paths.storage_root must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateTools() error {
	required := []struct {
		key   string
		value string
	}{
		{"separation.binary", c.Separation.Binary},
		{"separation.model", c.Separation.Model},
		{"separation.stem_suffix", c.Separation.StemSuffix},
		{"transcription.binary", c.Transcription.Binary},
		{"transcription.model", c.Transcription.Model},
		{"ffmpeg.binary", c.FFmpeg.Binary},
		{"ffmpeg.ffprobe_binary", c.FFmpeg.FFprobeBinary},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%s must be set", field.key)
		}
	}
	switch c.Transcription.Device {
	case "", "cpu", "cuda":
	default:
		return fmt.Errorf("transcription.device must be cpu or cuda (got %q)", c.Transcription.Device)
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.MaxUploadMB <= 0 {
		return errors.New("limits.max_upload_mb must be positive")
	}
	if c.Limits.MinFreeDiskMB < 0 {
		return errors.New("limits.min_free_disk_mb must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
