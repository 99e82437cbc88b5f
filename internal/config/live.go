package config

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
)

// Settings is the part of the configuration that can change while
// running.
type Settings struct {
	EnableCache  bool
	AutoDownload bool
	OffsetMillis int64
}

// Live holds the current configuration and swaps it atomically on reload.
type Live struct {
	path      string
	overrides func(*Config)
	current   atomic.Pointer[Config]
}

// NewLive wraps cfg. overrides, if set, is applied again after every
// reload so command-line flags keep winning over the file.
func NewLive(cfg *Config, path string, overrides func(*Config)) *Live {
	l := &Live{path: path, overrides: overrides}
	l.current.Store(cfg)
	return l
}

func (l *Live) Config() *Config {
	return l.current.Load()
}

func (l *Live) Settings() Settings {
	cfg := l.current.Load()
	return Settings{
		EnableCache:  cfg.Settings.EnableCache,
		AutoDownload: cfg.Settings.AutoDownload,
		OffsetMillis: int64(cfg.Sync.OffsetMS),
	}
}

// Reload re-reads the configuration. On error the previous configuration
// stays in place.
func (l *Live) Reload() error {
	cfg, err := Load(l.path)
	if err != nil {
		log.Warnf("%s reload failed, keeping previous config: %v", logging.Config, err)
		return err
	}
	if l.overrides != nil {
		l.overrides(cfg)
	}
	l.current.Store(cfg)

	s := l.Settings()
	log.Infof("%s reloaded (cache=%t, auto_download=%t, offset=%s)",
		logging.Config, s.EnableCache, s.AutoDownload, time.Duration(s.OffsetMillis)*time.Millisecond)
	return nil
}
