package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const (
	reset  = "\033[0m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	purple = "\033[35m"
	cyan   = "\033[36m"
)

// component prefixes used at the start of log messages
const (
	Cache    = blue + "[Cache]" + reset
	Resolver = green + "[Resolver]" + reset
	Tracker  = cyan + "[Tracker]" + reset
	MPRIS    = cyan + "[MPRIS]" + reset
	Sync     = yellow + "[Sync]" + reset
	Overlay  = purple + "[Overlay]" + reset
	Config   = blue + "[Config]" + reset
)

func Provider(name string) string {
	return green + "[Provider:" + name + "]" + reset
}

func Breaker(name string) string {
	return purple + "[CircuitBreaker:" + name + "]" + reset
}

// Setup configures the package-level logrus logger. An empty file
// keeps logging on stderr.
func Setup(level, file string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	if file == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)

	return f, nil
}

// DefaultFile is where the terminal viewer writes its log so it does not
// fight the UI for stdout.
func DefaultFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "lyricsync.log")
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "lyricsync", "lyricsync.log")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
