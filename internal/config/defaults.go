package config

const (
	defaultConfigPath    = "~/.config/encore/config.toml"
	defaultStorageRoot   = "~/.local/share/encore/media"
	defaultLogDir        = "~/.local/state/encore/logs"
	defaultAPIBind       = "127.0.0.1:5000"
	defaultDemucsBinary  = "demucs"
	defaultDemucsModel   = "htdemucs"
	defaultStemSuffix    = "no_vocals.wav"
	defaultWhisperBinary = "whisper"
	defaultWhisperModel  = "medium"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultDenoiseFilter = "highpass=f=80,afftdn=nf=-25,dynaudnorm"
	defaultMixFilter     = "amix=inputs=2:duration=shortest"
	defaultMaxUploadMB   = 100
	defaultMinFreeDiskMB = 512
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageRoot: defaultStorageRoot,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Separation: Separation{
			Binary:     defaultDemucsBinary,
			Model:      defaultDemucsModel,
			StemSuffix: defaultStemSuffix,
		},
		Transcription: Transcription{
			Binary: defaultWhisperBinary,
			Model:  defaultWhisperModel,
		},
		FFmpeg: FFmpeg{
			Binary:        defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			DenoiseFilter: defaultDenoiseFilter,
			MixFilter:     defaultMixFilter,
		},
		Limits: Limits{
			MaxUploadMB:   defaultMaxUploadMB,
			MinFreeDiskMB: defaultMinFreeDiskMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
