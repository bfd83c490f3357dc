package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StorageRoot) == "" {
		c.Paths.StorageRoot = defaultStorageRoot
	}
	if c.Paths.StorageRoot, err = expandPath(c.Paths.StorageRoot); err != nil {
		return fmt.Errorf("paths.storage_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("ENCORE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Separation.Binary = strings.TrimSpace(c.Separation.Binary)
	c.Separation.Model = strings.TrimSpace(c.Separation.Model)
	c.Separation.StemSuffix = strings.TrimSpace(c.Separation.StemSuffix)
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	c.FFmpeg.DenoiseFilter = strings.TrimSpace(c.FFmpeg.DenoiseFilter)
	if c.FFmpeg.DenoiseFilter == "" {
		c.FFmpeg.DenoiseFilter = defaultDenoiseFilter
	}
	c.FFmpeg.MixFilter = strings.TrimSpace(c.FFmpeg.MixFilter)
	if c.FFmpeg.MixFilter == "" {
		c.FFmpeg.MixFilter = defaultMixFilter
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
