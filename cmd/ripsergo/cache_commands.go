package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ripsergo/internal/diagcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the diagram cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func withCache(cmd *cobra.Command, ctx *commandContext, fn func(*diagcache.Cache) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Diagram cache is disabled (set cache.enabled = true)")
		return nil
	}
	cache, err := diagcache.Open(cmd.Context(), cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open diagram cache: %w", err)
	}
	defer cache.Close()
	return fn(cache)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and hit counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *diagcache.Cache) error {
				stats, err := cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				counts := newCountFormatter(localeTag())
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					headers: []string{"Field", "Value"},
					rows: [][]string{
						{"Path", stats.Path},
						{"Entries", counts.count(stats.Entries)},
						{"Intervals", counts.count(stats.Intervals)},
						{"Hits", counts.count(stats.Hits)},
						{"Size", humanize.Bytes(uint64(max(stats.SizeBytes, 0)))},
					},
					aligns: []columnAlignment{alignLeft, alignRight},
				}))
				return nil
			})
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached diagrams, most recently used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *diagcache.Cache) error {
				entries, err := cache.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cached diagrams")
					return nil
				}
				counts := newCountFormatter(localeTag())
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						shortCacheKey(entry.Key),
						counts.count(entry.Points),
						strconv.Itoa(entry.Dimensions),
						counts.count(entry.Intervals),
						counts.count(entry.Hits),
						humanize.Time(entry.LastUsedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					headers: []string{"Key", "Points", "Dims", "Intervals", "Hits", "Last used"},
					rows:    rows,
					aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				}))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit entries as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached diagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *diagcache.Cache) error {
				started := time.Now()
				removed, err := cache.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s cached diagram(s) in %s\n",
					newCountFormatter(localeTag()).count(removed), time.Since(started).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func shortCacheKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
