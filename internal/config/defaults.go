package config

const (
	BackendFile  = "file"
	BackendBolt  = "bolt"
	BackendRedis = "redis"
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Settings: SettingsConfig{
			EnableCache:  true,
			AutoDownload: true,
		},
		Player: PlayerConfig{
			PollIntervalMS: 1000,
			DebounceMS:     2000,
		},
		Sync: SyncConfig{
			TickMS: 500,
		},
		Cache: CacheConfig{
			Backend:     BackendFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "lyricsync:",
		},
		Providers: ProvidersConfig{
			Order:                  []string{"lrclib", "netease", "kugou"},
			TimeoutSeconds:         10,
			RatePerSecond:          2,
			Burst:                  4,
			UserAgent:              "lyricsync (https://karolbroda.com/lyricsync)",
			BreakerThreshold:       3,
			BreakerCooldownSeconds: 300,
		},
		Overlay: OverlayConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Player
	if c.Player.PollIntervalMS == 0 {
		c.Player.PollIntervalMS = d.Player.PollIntervalMS
	}
	if c.Player.DebounceMS == 0 {
		c.Player.DebounceMS = d.Player.DebounceMS
	}

	// Sync
	if c.Sync.TickMS == 0 {
		c.Sync.TickMS = d.Sync.TickMS
	}

	// Cache
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = d.Cache.RedisAddr
	}
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = d.Cache.RedisPrefix
	}

	// Providers
	if len(c.Providers.Order) == 0 {
		c.Providers.Order = d.Providers.Order
	}
	if c.Providers.TimeoutSeconds == 0 {
		c.Providers.TimeoutSeconds = d.Providers.TimeoutSeconds
	}
	if c.Providers.RatePerSecond == 0 {
		c.Providers.RatePerSecond = d.Providers.RatePerSecond
	}
	if c.Providers.Burst == 0 {
		c.Providers.Burst = d.Providers.Burst
	}
	if c.Providers.UserAgent == "" {
		c.Providers.UserAgent = d.Providers.UserAgent
	}
	if c.Providers.BreakerThreshold == 0 {
		c.Providers.BreakerThreshold = d.Providers.BreakerThreshold
	}
	if c.Providers.BreakerCooldownSeconds == 0 {
		c.Providers.BreakerCooldownSeconds = d.Providers.BreakerCooldownSeconds
	}

	// Overlay
	if len(c.Overlay.AllowedOrigins) == 0 {
		c.Overlay.AllowedOrigins = d.Overlay.AllowedOrigins
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
