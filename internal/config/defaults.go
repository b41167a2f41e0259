package config

const (
	defaultConfigPath      = "~/.config/ripsergo/config.toml"
	defaultRipserBinary    = "ripser"
	defaultRipserMaxDim    = 1
	defaultRipserFormat    = "distance"
	defaultRipserTimeout   = 0
	defaultLogDir          = "~/.local/share/ripsergo/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultCheckPointCount = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Ripser: Ripser{
			Binary:          defaultRipserBinary,
			MaxDim:          defaultRipserMaxDim,
			Format:          defaultRipserFormat,
			TimeoutSeconds:  defaultRipserTimeout,
			CheckPointCount: defaultCheckPointCount,
		},
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Cache: Cache{
			Path: defaultCachePath(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
