package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/logging"
)

var (
	// global flags
	cfgFile      string
	mprisService string
	syncOffset   int
	hideHeader   bool
	noCache      bool
	logLevel     string
	headless     bool
	listenAddr   string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "lyricsync",
	Short: "synchronized lyrics for whatever is playing",
	Long: `lyricsync follows the active mpris player, finds time-tagged lyrics for the
current track (cache first, then lyric providers) and shows the line that
matches the playback position.

when run without a subcommand, it starts the interactive TUI viewer.`,
	Version: "1.0.0",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// set here to avoid an initialization cycle through rootCmd
	rootCmd.PersistentPreRunE = setup
	// default behavior: run the TUI viewer
	rootCmd.RunE = runViewer

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default $XDG_CONFIG_HOME/lyricsync/config.toml)")
	flags.StringVarP(&mprisService, "mpris-service", "m", "", "mpris player to follow (e.g. spotify); empty follows the playing one")
	flags.IntVarP(&syncOffset, "sync-offset", "s", 0, "sync offset in milliseconds (positive shows lines earlier)")
	flags.BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	flags.BoolVar(&noCache, "no-cache", false, "disable the lyrics cache")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&headless, "headless", false, "print lyric lines to the log instead of starting the TUI")
	flags.StringVar(&listenAddr, "listen", "", "serve the overlay api on this address (e.g. 127.0.0.1:7070)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(loaded)
	cfg = loaded

	logFile := cfg.Log.File
	if logFile == "" && usesTUI(cmd) {
		logFile = logging.DefaultFile()
	}

	closer, err := logging.Setup(cfg.Log.Level, logFile)
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

// applyFlagOverrides runs after every config load, including reloads, so
// flags always win over the file and the environment.
func applyFlagOverrides(c *config.Config) {
	flags := rootCmd.PersistentFlags()

	if mprisService != "" {
		c.Player.MPRISService = mprisService
	}
	if flags.Changed("sync-offset") {
		c.Sync.OffsetMS = syncOffset
	}
	if noCache {
		c.Settings.EnableCache = false
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if listenAddr != "" {
		c.Overlay.Listen = listenAddr
	}
}

func usesTUI(cmd *cobra.Command) bool {
	return (cmd == rootCmd || cmd == runCmd) && !headless
}
