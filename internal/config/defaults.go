package config

const (
	defaultConfigPath             = "~/.config/clipmatch/config.toml"
	defaultDownloadDir            = "~/.local/share/clipmatch/downloads"
	defaultAudioDir               = "~/.local/share/clipmatch/audio"
	defaultConsumedDirName        = "consumed"
	defaultOutputDir              = "~/.local/share/clipmatch/output"
	defaultStateDir               = "~/.local/share/clipmatch/state"
	defaultLogDir                 = "~/.local/share/clipmatch/logs"
	defaultPixabayBaseURL         = "https://pixabay.com/api"
	defaultPixabayQuality         = "medium"
	defaultPixabayTimeoutSeconds  = 30
	defaultPageSize               = 5
	defaultDownloadConcurrency    = 5
	defaultPairConcurrency        = 1
	defaultBufferSeconds          = 5
	defaultDownloadTimeoutSeconds = 300
	defaultMaxRetries             = 2
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultVideoCodec             = "libx264"
	defaultAudioCodec             = "aac"
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"

	// MaxPageSize is the largest per_page value the Pixabay API accepts.
	MaxPageSize = 200

	LedgerBackendFile   = "file"
	LedgerBackendSQLite = "sqlite"
)

var defaultAudioExtensions = []string{".mp3", ".wav"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			AudioDir:    defaultAudioDir,
			OutputDir:   defaultOutputDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Pixabay: Pixabay{
			BaseURL:        defaultPixabayBaseURL,
			Quality:        defaultPixabayQuality,
			SafeSearch:     true,
			TimeoutSeconds: defaultPixabayTimeoutSeconds,
		},
		Search: Search{
			PageSize: defaultPageSize,
		},
		Pipeline: Pipeline{
			DownloadConcurrency:    defaultDownloadConcurrency,
			PairConcurrency:        defaultPairConcurrency,
			BufferSeconds:          defaultBufferSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
			MaxRetries:             defaultMaxRetries,
		},
		Ledger: Ledger{
			Backend: LedgerBackendFile,
		},
		Media: Media{
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			AudioExtensions: append([]string(nil), defaultAudioExtensions...),
			VideoCodec:      defaultVideoCodec,
			AudioCodec:      defaultAudioCodec,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
