package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/iepathos/debtmap/internal/cache"
	"github.com/iepathos/debtmap/internal/output"
)

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the analysis result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache size and entry counts",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached analysis results",
				Action: runCacheClear,
			},
		},
	}
}

func openCache(c *cli.Context) (*cache.Cache, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
}

func runCacheStats(c *cli.Context) error {
	cc, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := cc.GetStats()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")),
		c.String("output"),
		true,
	)
	if err != nil {
		return err
	}
	defer formatter.Close()

	section := &output.Section{
		Title: "Cache",
		Content: fmt.Sprintf(
			"Entries:    %d\nTotal size: %d bytes\nOldest:     %s\nNewest:     %s",
			stats.Entries, stats.TotalSize,
			stats.OldestAge.Round(time.Second), stats.NewestAge.Round(time.Second),
		),
		Data: stats,
	}
	return formatter.Output(section)
}

func runCacheClear(c *cli.Context) error {
	cc, err := openCache(c)
	if err != nil {
		return err
	}
	if err := cc.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	color.Green("Cache cleared")
	return nil
}
