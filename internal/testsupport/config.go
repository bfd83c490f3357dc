package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"encore/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StorageRoot = filepath.Join(base, "media")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Limits.MinFreeDiskMB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithMaxUploadMB overrides the upload limit.
func WithMaxUploadMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Limits.MaxUploadMB = mb
	}
}

// WithSeparationScript replaces the separation binary with a shell script.
func WithSeparationScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Separation.Binary = WriteScript(b.t, b.binDir(), "demucs", body)
	}
}

// WithTranscriptionScript replaces the transcription binary with a shell script.
func WithTranscriptionScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.Binary = WriteScript(b.t, b.binDir(), "whisper", body)
	}
}

// WithFFmpegScript replaces the ffmpeg binary with a shell script.
func WithFFmpegScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.Binary = WriteScript(b.t, b.binDir(), "ffmpeg", body)
	}
}

// WithFFprobeScript replaces the ffprobe binary with a shell script.
func WithFFprobeScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.FFprobeBinary = WriteScript(b.t, b.binDir(), "ffprobe", body)
	}
}

// WithMissingBinaries points every external tool at a path that does not exist.
func WithMissingBinaries() ConfigOption {
	return func(b *configBuilder) {
		missing := filepath.Join(b.baseDir, "missing")
		b.cfg.Separation.Binary = filepath.Join(missing, "demucs")
		b.cfg.Transcription.Binary = filepath.Join(missing, "whisper")
		b.cfg.FFmpeg.Binary = filepath.Join(missing, "ffmpeg")
		b.cfg.FFmpeg.FFprobeBinary = filepath.Join(missing, "ffprobe")
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default encore external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"demucs", "whisper", "ffmpeg", "ffprobe"}
		}
		dir := filepath.Join(b.baseDir, "path-bin")
		for _, name := range names {
			WriteScript(b.t, dir, name, "exit 0\n")
		}
		b.t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

func (b *configBuilder) binDir() string {
	return filepath.Join(b.baseDir, "bin")
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StorageRoot)
}
