package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/overlay"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/syncloop"
	"karolbroda.com/lyricsync/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the lyrics viewer",
	Long:  `starts the terminal-based lyrics viewer with real-time synchronized lyrics display.`,
	RunE:  runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runViewer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	live := config.NewLive(cfg, cfgFile, applyFlagOverrides)
	go watchReload(ctx, live)

	res, store, err := newResolver(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	tracker := player.NewTracker(
		player.WithDebounce(time.Duration(cfg.Player.DebounceMS) * time.Millisecond),
	)

	mpris, err := player.NewMPRIS(bus, cfg.Player.MPRISService, tracker)
	if err != nil {
		return fmt.Errorf("failed to create player source: %w", err)
	}
	if err := mpris.Start(); err != nil {
		log.Warnf("%s signals unavailable, polling only: %v", logging.MPRIS, err)
	}
	defer mpris.Stop()

	loop := syncloop.New(syncloop.Options{
		Resolver: res,
		Position: tracker,
		Settings: func() syncloop.Settings { return syncloop.Settings(live.Settings()) },
		Tick:     time.Duration(cfg.Sync.TickMS) * time.Millisecond,
	})

	go tracker.Poll(ctx, mpris, time.Duration(cfg.Player.PollIntervalMS)*time.Millisecond)

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(ctx, tracker.Events())
	}()

	var server *overlay.Server
	if cfg.Overlay.Listen != "" {
		server = overlay.New(overlay.Options{AllowedOrigins: cfg.Overlay.AllowedOrigins})
		go func() {
			if err := server.ListenAndServe(ctx, cfg.Overlay.Listen); err != nil {
				log.Errorf("%s %v", logging.Overlay, err)
			}
		}()
	}

	updates := fanOut(loop.Updates(), server)

	if headless {
		printUpdates(updates)
	} else if err := runTUI(ctx, updates, tracker, mpris.Service()); err != nil {
		return err
	}

	cancel()
	return <-loopDone
}

// fanOut feeds the overlay, when there is one, and returns a channel for
// the local presenter. The local channel drops updates it cannot take.
func fanOut(in <-chan syncloop.DisplayUpdate, server *overlay.Server) <-chan syncloop.DisplayUpdate {
	out := make(chan syncloop.DisplayUpdate, 16)
	go func() {
		defer close(out)
		for u := range in {
			if server != nil {
				server.Publish(u)
			}
			select {
			case out <- u:
			default:
			}
		}
	}()
	return out
}

func printUpdates(updates <-chan syncloop.DisplayUpdate) {
	for u := range updates {
		switch {
		case u.State == syncloop.NoTrack:
			log.Infof("%s waiting for a player", logging.Sync)
		case u.State == syncloop.Resolving:
			log.Infof("%s %s - %s: searching", logging.Sync, u.Track.Artist, u.Track.Title)
		case u.NoLyrics:
			log.Infof("%s %s - %s: no lyrics found", logging.Sync, u.Track.Artist, u.Track.Title)
		case u.IsCurrentLine:
			log.Infof("%s [%d] %s", logging.Sync, u.LineIndex, u.LineText)
		}
	}
}

func runTUI(ctx context.Context, updates <-chan syncloop.DisplayUpdate, tracker *player.Tracker, service string) error {
	defer ui.ResetTerminal()

	model := ui.NewModel(ui.ModelConfig{
		Updates:    updates,
		Position:   tracker.Position,
		Player:     service,
		HideHeader: hideHeader,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}
	return nil
}

func watchReload(ctx context.Context, live *config.Live) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			_ = live.Reload()
		}
	}
}
