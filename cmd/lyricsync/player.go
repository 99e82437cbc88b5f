package main

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/player"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  `discover and inspect mpris-compatible music players on your system.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently running on the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		players, err := player.ListPlayers(ctx, bus)
		if err != nil {
			return err
		}

		if len(players) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(players))
		for _, p := range players {
			if p.Identity != "" {
				fmt.Printf("  %s (%s)\n", p.Service, p.Identity)
			} else {
				fmt.Printf("  %s\n", p.Service)
			}
		}

		fmt.Println("\nuse --mpris-service flag to specify which player to use")
		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show currently playing track",
	Long:  `display information about the currently playing track.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		source, err := player.NewMPRIS(bus, cfg.Player.MPRISService, player.NewTracker())
		if err != nil {
			return fmt.Errorf("failed to connect to player: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		snap, ok, err := source.QueryActiveSession(ctx)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", source.Service(), err)
		}
		if !ok {
			fmt.Println("no track currently playing")
			return nil
		}

		fmt.Printf("title:    %s\n", snap.Title)
		fmt.Printf("artist:   %s\n", snap.Artist)
		if snap.Album != "" {
			fmt.Printf("album:    %s\n", snap.Album)
		}
		if snap.DurationMillis > 0 {
			fmt.Printf("duration: %s\n", formatDuration(snap.DurationMillis))
		}
		if snap.Playing {
			fmt.Printf("state:    playing\n")
		} else {
			fmt.Printf("state:    paused\n")
		}
		fmt.Printf("position: %s\n", formatDuration(snap.PositionMillis))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}

func formatDuration(millis int64) string {
	if millis < 0 {
		return "0:00"
	}
	seconds := millis / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
