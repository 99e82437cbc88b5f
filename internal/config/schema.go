package config

// Config is the root configuration structure. Every field can be set from
// the TOML file or from a LYRICSYNC_<SECTION>_<KEY> environment variable
// such as LYRICSYNC_SETTINGS_ENABLE_CACHE.
type Config struct {
	Settings  SettingsConfig  `toml:"settings" split_words:"true"`
	Player    PlayerConfig    `toml:"player" split_words:"true"`
	Sync      SyncConfig      `toml:"sync" split_words:"true"`
	Cache     CacheConfig     `toml:"cache" split_words:"true"`
	Providers ProvidersConfig `toml:"providers" split_words:"true"`
	Overlay   OverlayConfig   `toml:"overlay" split_words:"true"`
	Log       LogConfig       `toml:"log" split_words:"true"`
}

// SettingsConfig holds the user-facing toggles read before every lookup.
type SettingsConfig struct {
	EnableCache  bool `toml:"enable_cache" split_words:"true"`
	AutoDownload bool `toml:"auto_download" split_words:"true"`
}

type PlayerConfig struct {
	// MPRISService is a full bus name or a short player name. Empty
	// follows whichever player is playing.
	MPRISService   string `toml:"mpris_service" split_words:"true"`
	PollIntervalMS int    `toml:"poll_interval_ms" split_words:"true"`
	DebounceMS     int    `toml:"debounce_ms" split_words:"true"`
}

type SyncConfig struct {
	TickMS   int `toml:"tick_ms" split_words:"true"`
	OffsetMS int `toml:"offset_ms" split_words:"true"`
}

type CacheConfig struct {
	Backend       string `toml:"backend" split_words:"true"`
	Dir           string `toml:"dir" split_words:"true"`
	Compression   bool   `toml:"compression" split_words:"true"`
	RedisAddr     string `toml:"redis_addr" split_words:"true"`
	RedisPassword string `toml:"redis_password" split_words:"true"`
	RedisDB       int    `toml:"redis_db" split_words:"true"`
	RedisPrefix   string `toml:"redis_prefix" split_words:"true"`
}

type ProvidersConfig struct {
	Order                  []string `toml:"order" split_words:"true"`
	TimeoutSeconds         int      `toml:"timeout_seconds" split_words:"true"`
	RatePerSecond          float64  `toml:"rate_per_second" split_words:"true"`
	Burst                  int      `toml:"burst" split_words:"true"`
	UserAgent              string   `toml:"user_agent" split_words:"true"`
	LrclibURL              string   `toml:"lrclib_url" split_words:"true"`
	NeteaseURL             string   `toml:"netease_url" split_words:"true"`
	KugouURL               string   `toml:"kugou_url" split_words:"true"`
	GenericBaseURL         string   `toml:"generic_base_url" split_words:"true"`
	BreakerThreshold       int      `toml:"breaker_threshold" split_words:"true"`
	BreakerCooldownSeconds int      `toml:"breaker_cooldown_seconds" split_words:"true"`
}

// OverlayConfig controls the optional HTTP surface. An empty Listen keeps
// it off.
type OverlayConfig struct {
	Listen         string   `toml:"listen" split_words:"true"`
	AllowedOrigins []string `toml:"allowed_origins" split_words:"true"`
}

type LogConfig struct {
	Level string `toml:"level" split_words:"true"`
	File  string `toml:"file" split_words:"true"`
}
