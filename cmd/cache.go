package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dkazmin/normcheck/internal/cache"
)

var cacheDirFlag string

// cacheCmd groups the result-cache maintenance subcommands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the validation result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size, recent activity, and the most requested queries",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all cached entries to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheExport,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired entries",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func openCache() (*cache.Store, error) {
	dir := defaultCacheDir(cacheDirFlag)

	store, err := cache.Open(dir, cache.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("open cache at %s: %w", dir, err)
	}

	return store, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("collect cache stats: %w", err)
	}

	if output == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(stats)
	}

	color.New(color.Bold).Println("Cache statistics")
	renderStats(os.Stdout, stats)

	return nil
}

// renderStats writes the human-readable stats block.
func renderStats(w io.Writer, stats *cache.Stats) {
	fmt.Fprintf(w, "  records:      %d\n", stats.TotalRecords)
	fmt.Fprintf(w, "  size:         %d bytes\n", stats.SizeBytes)
	fmt.Fprintf(w, "  last 24h:     %d new entries\n", stats.Recent24h)
	fmt.Fprintf(w, "  TTL:          %.0f hours\n", stats.TTLHours)

	if len(stats.PopularTop) > 0 {
		fmt.Fprintln(w, "  most requested:")
		for _, popular := range stats.PopularTop {
			fmt.Fprintf(w, "    %4d  %s\n", popular.AccessCount, popular.Query)
		}
	}
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Export(args[0])
	if err != nil {
		return fmt.Errorf("export cache: %w", err)
	}

	if !quiet {
		fmt.Printf("Exported %d entries to %s\n", count, args[0])
	}

	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.PurgeExpired()
	if err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}

	if !quiet {
		fmt.Printf("Removed %d expired entries\n", removed)
	}

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	if !quiet {
		fmt.Println("Cache cleared")
	}

	return nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "result cache directory")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheExportCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
