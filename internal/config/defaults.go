package config

const (
	defaultConfigPath     = "~/.config/imgconv/config.toml"
	defaultOutputDir      = "~/Pictures/converted"
	defaultDownloadsDir   = "~/Downloads"
	defaultLogDir         = "~/.local/share/imgconv/logs"
	defaultFormat         = "webp"
	defaultQuality        = 0.85
	defaultAVIFSpeed      = 6
	defaultWebPMethod     = 4
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogRetention   = 14
	defaultNotifyTimeout  = 10
	defaultNotifyMinItems = 2
	maxAVIFSpeed          = 10
	maxWebPMethod         = 6
	envOutputDir          = "IMGCONV_OUTPUT_DIR"
	envNtfyTopic          = "IMGCONV_NTFY_TOPIC"
)

// Default returns a Config populated with defaults. The output directory is
// resolved during Load (environment first, then the built-in default) and the
// spill directory is empty, which keeps the session store in memory.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadsDir: defaultDownloadsDir,
			LogDir:       defaultLogDir,
		},
		Conversion: Conversion{
			Format:  defaultFormat,
			Quality: defaultQuality,
		},
		Encoder: Encoder{
			AVIFSpeed:  defaultAVIFSpeed,
			WebPMethod: defaultWebPMethod,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Batch:          true,
			Errors:         true,
			MinItems:       defaultNotifyMinItems,
		},
	}
}
