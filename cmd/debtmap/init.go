package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

const defaultConfigFile = `# debtmap configuration

[scoring]
coverage_weight = 0.40
complexity_weight = 0.40
dependency_weight = 0.20
entry_point_multiplier = 0.6
orchestrator_multiplier = 0.8
lenient_missing_coverage = false

[thresholds]
# Functions below both floors are filtered out unless they carry test debt.
min_cyclomatic = 3
min_cognitive = 5
# Entropy dampening triggers.
pattern_repetition = 0.7
token_entropy = 0.4
branch_similarity = 0.8
entropy_weight = 1.0

[exclude]
patterns = ["*.min.js", "*.min.css", "*.pb.go", "*_generated.go"]
extensions = [".lock", ".sum"]
dirs = ["vendor", "node_modules", ".git", ".debtmap", "dist", "build", "target", "__pycache__"]

[cache]
enabled = true
dir = ".debtmap/cache"
ttl = 24

[output]
format = "text"
color = true
top = 0
`

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default debtmap.toml to the current directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: runInit,
	}
}

func runInit(c *cli.Context) error {
	const path = "debtmap.toml"

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	color.Green("Wrote %s", path)
	return nil
}
