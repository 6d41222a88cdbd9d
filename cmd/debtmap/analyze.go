package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/iepathos/debtmap/internal/output"
	"github.com/iepathos/debtmap/internal/progress"
	"github.com/iepathos/debtmap/internal/scanner"
	"github.com/iepathos/debtmap/pkg/analyzer"
	"github.com/iepathos/debtmap/pkg/analyzer/coverage"
	"github.com/iepathos/debtmap/pkg/analyzer/pipeline"
	"github.com/iepathos/debtmap/pkg/config"
	"github.com/iepathos/debtmap/pkg/source"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Rank functions by technical-debt priority",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "coverage",
				Usage: "Path to an LCOV coverage report",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Show only the top N items (0 shows all)",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		root = "."
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if f := c.String("format"); f != "" {
		cfg.Output.Format = f
	}
	if c.IsSet("top") {
		cfg.Output.Top = c.Int("top")
	}
	verbose := c.Bool("verbose") || cfg.Output.Verbose

	files, err := scanFiles(cfg, root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported source files found under %s", root)
	}

	opts := []pipeline.Option{}
	if covPath := c.String("coverage"); covPath != "" {
		raw, err := os.ReadFile(covPath)
		if err != nil {
			return fmt.Errorf("reading coverage report: %w", err)
		}
		data, err := coverage.ParseLCOV(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("parsing coverage report: %w", err)
		}
		opts = append(opts, pipeline.WithCoverage(data, raw))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		return err
	}

	bar := progress.NewTracker("Analyzing", len(files))
	tracker := analyzer.NewTracker(bar.Observe)
	ctx := analyzer.WithTracker(c.Context, tracker)

	ua, err := p.Run(ctx, files, source.NewFilesystemSource(root))
	if err != nil {
		bar.FinishError(err)
		return err
	}
	if ua.FromCache {
		bar.FinishSkipped("cached")
	} else {
		bar.FinishSuccess()
	}

	formatter, err := output.NewFormatter(
		output.ParseFormat(cfg.Output.Format),
		c.String("output"),
		cfg.Output.Color,
	)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.DebtReport(ua, cfg.Output.Top, verbose))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.LoadOrDefault(), nil
}

// scanFiles discovers source files under root and returns them as sorted
// root-relative slash paths, matching the layout FilesystemSource serves.
func scanFiles(cfg *config.Config, root string) ([]string, error) {
	s := scanner.NewScanner(cfg)
	found, err := s.ScanDir(root)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(found))
	for _, f := range found {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			continue
		}
		files = append(files, filepath.ToSlash(rel))
	}
	sort.Strings(files)
	return files, nil
}
