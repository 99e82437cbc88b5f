package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/lyrics"
)

var (
	// flags for cache list
	cacheSortBy string
	// flags for cache clear
	cacheConfirm bool
	// flags for cache show / delete
	cacheKey string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
	Long:  `manage cached lyrics data, including viewing statistics, listing entries, and clearing the cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, store *cache.Store) error {
			st := store.Stats(ctx)

			fmt.Println("cache statistics:")
			fmt.Printf("  backend:   %s\n", cfg.Cache.Backend)
			fmt.Printf("  location:  %s\n", store.Location())
			fmt.Printf("  entries:   %d\n", st.Entries)
			fmt.Printf("  not found: %d\n", st.Negative)
			fmt.Printf("  size:      %s\n", humanize.Bytes(uint64(st.Bytes)))
			return nil
		})
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached songs",
	Long:  `list all songs in the cache with their line count and cache date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, store *cache.Store) error {
			entries := store.Entries(ctx)
			if len(entries) == 0 {
				fmt.Println("cache is empty")
				return nil
			}

			sortCacheEntries(entries, cacheSortBy)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ARTIST\tTITLE\tLINES\tCACHED")
			for _, entry := range entries {
				lines := fmt.Sprintf("%d", len(entry.Lines))
				if entry.IsNegative() {
					lines = "none"
				}
				artist := entry.Artist
				if artist == "" {
					artist = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", artist, entry.Title, lines, humanize.Time(time.Unix(entry.CreatedAt, 0)))
			}
			w.Flush()

			fmt.Printf("\ntotal: %d songs\n", len(entries))
			return nil
		})
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <title> [artist]",
	Short: "show cached entry for specific song",
	Long:  `display a cached entry including its lyrics. use --key to address an entry by its cache key.`,
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keyFromArgs(args)
		if err != nil {
			return err
		}

		return withCache(func(ctx context.Context, store *cache.Store) error {
			entry, err := store.Entry(ctx, key)
			if err != nil {
				return fmt.Errorf("song not found in cache: %w", err)
			}

			fmt.Printf("key:     %s\n", entry.Key)
			fmt.Printf("title:   %s\n", entry.Title)
			fmt.Printf("artist:  %s\n", entry.Artist)
			fmt.Printf("cached:  %s (%s)\n",
				time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"),
				humanize.Time(time.Unix(entry.CreatedAt, 0)))

			if entry.IsNegative() {
				fmt.Println("\nno lyrics were found for this song")
				return nil
			}

			fmt.Printf("\n%d lines:\n\n", len(entry.Lines))
			fmt.Print(lyrics.Format(entry.Document()))
			return nil
		})
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <title> [artist]",
	Short: "remove specific song from cache",
	Long:  `remove a specific song from the cache by title and artist, or by --key.`,
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keyFromArgs(args)
		if err != nil {
			return err
		}

		return withCache(func(ctx context.Context, store *cache.Store) error {
			if !store.DeleteKey(ctx, key) {
				return fmt.Errorf("song not found in cache: %s", key)
			}
			fmt.Printf("deleted '%s' from cache\n", key)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics data. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			response = strings.ToLower(response)
			if response != "y" && response != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		return withCache(func(ctx context.Context, store *cache.Store) error {
			if !store.Clear(ctx) {
				return fmt.Errorf("failed to clear cache")
			}
			fmt.Println("cache cleared successfully")
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove unreadable cache entries",
	Long:  `remove cache entries that can no longer be decoded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, store *cache.Store) error {
			fmt.Printf("removed %d unreadable entries\n", store.Prune(ctx))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
	cacheShowCmd.Flags().StringVar(&cacheKey, "key", "", "cache key as shown by the cache")
	cacheDeleteCmd.Flags().StringVar(&cacheKey, "key", "", "cache key as shown by the cache")
}

// helper functions

func withCache(fn func(ctx context.Context, store *cache.Store) error) error {
	store, err := openCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	return fn(context.Background(), store)
}

func keyFromArgs(args []string) (string, error) {
	if cacheKey != "" {
		return cacheKey, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("need a title (and optional artist) or --key")
	}

	artist := ""
	if len(args) > 1 {
		artist = args[1]
	}
	return cache.Key(args[0], artist), nil
}

func sortCacheEntries(entries []*cache.Entry, sortBy string) {
	switch sortBy {
	case "artist":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Artist) < strings.ToLower(entries[j].Artist)
		})
	case "title":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
		})
	case "date":
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}
