package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/resolver"
)

var (
	// flags for lyrics fetch
	fetchForce bool
	// flags for lyrics search
	searchProvider string
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics search and management",
	Long:  `search lyric providers, pre-fetch to cache, or preview lyrics in the terminal.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <title> [artist]",
	Short: "list candidates from every provider",
	Long:  `ask each configured provider for candidates and print what they return.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, artist := titleArtist(args)

		sources, err := buildSources(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		fmt.Printf("searching for: %s\n\n", describe(title, artist))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tID\tARTIST\tTITLE\tALBUM")
		found := 0
		for _, src := range sources {
			if searchProvider != "" && src.Name() != searchProvider {
				continue
			}
			for _, c := range src.SearchCandidates(ctx, title, artist) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", src.Name(), c.ProviderTrackID, c.Artist, c.Title, c.Album)
				found++
			}
		}
		w.Flush()

		if found == 0 {
			fmt.Println("\nno candidates found")
			return nil
		}
		fmt.Println("\nuse 'lyricsync lyrics fetch' to save to cache")
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <title> [artist]",
	Short: "pre-fetch and cache lyrics",
	Long:  `resolve lyrics through the cache and providers and save the result for instant loading.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, artist := titleArtist(args)

		res, store, err := newResolver(cfg)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("cache is unavailable")
		}
		defer store.Close()

		ctx := context.Background()
		if fetchForce {
			store.Delete(ctx, title, artist)
		}

		fmt.Printf("fetching: %s\n", describe(title, artist))

		result := res.Lookup(ctx, resolver.Request{
			Title:    title,
			Artist:   artist,
			UseCache: true,
			Network:  true,
		})

		switch {
		case result.FromCache && result.Document.IsEmpty():
			fmt.Println("cached as not found (use --force to search again)")
		case result.FromCache:
			fmt.Printf("already cached: %d lines\n", result.Document.Len())
		case result.Document.IsEmpty():
			fmt.Println("no lyrics found; remembered in cache")
		default:
			fmt.Printf("cached %d lines from %s\n", result.Document.Len(), result.Source)
		}
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <title> [artist]",
	Short: "preview lyrics in terminal",
	Long:  `display lyrics with timestamps, from the cache when possible.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, artist := titleArtist(args)

		res, store, err := newResolver(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		result := res.Lookup(context.Background(), resolver.Request{
			Title:    title,
			Artist:   artist,
			UseCache: cfg.Settings.EnableCache,
			Network:  true,
		})
		if result.Document.IsEmpty() {
			return fmt.Errorf("no lyrics found for %s", describe(title, artist))
		}

		fmt.Printf("%s (%s, %d lines)\n\n", describe(title, artist), result.Source, result.Document.Len())
		fmt.Print(lyrics.Format(result.Document))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)

	lyricsSearchCmd.Flags().StringVar(&searchProvider, "provider", "", "only ask this provider")
	lyricsFetchCmd.Flags().BoolVar(&fetchForce, "force", false, "ignore any cached entry")
}

func titleArtist(args []string) (string, string) {
	if len(args) > 1 {
		return args[0], args[1]
	}
	return args[0], ""
}

func describe(title, artist string) string {
	if artist == "" {
		return title
	}
	return artist + " - " + title
}
