package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for debtmap.
type Config struct {
	// Scoring controls how debt scores are weighted and adjusted
	Scoring ScoringConfig `koanf:"scoring"`

	// Thresholds for filtering and entropy dampening
	Thresholds ThresholdConfig `koanf:"thresholds"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output"`
}

// ScoringConfig controls the weighted-sum scoring model.
type ScoringConfig struct {
	CoverageWeight   float64 `koanf:"coverage_weight"`
	ComplexityWeight float64 `koanf:"complexity_weight"`
	DependencyWeight float64 `koanf:"dependency_weight"`

	// Role multipliers applied to the coverage factor.
	EntryPointMultiplier   float64 `koanf:"entry_point_multiplier"`
	OrchestratorMultiplier float64 `koanf:"orchestrator_multiplier"`

	// Treat functions with no coverage data as fully uncovered when false;
	// when true, missing data contributes no coverage pressure.
	LenientMissingCoverage bool `koanf:"lenient_missing_coverage"`
}

// ThresholdConfig defines metric thresholds.
type ThresholdConfig struct {
	// Functions below both complexity floors are filtered from results
	// unless flagged as test-related debt.
	MinCyclomatic int `koanf:"min_cyclomatic"`
	MinCognitive  int `koanf:"min_cognitive"`

	// Entropy dampening triggers.
	PatternRepetition float64 `koanf:"pattern_repetition"`
	TokenEntropy      float64 `koanf:"token_entropy"`
	BranchSimilarity  float64 `koanf:"branch_similarity"`

	// Weight of entropy dampening, 0 disables it entirely.
	EntropyWeight float64 `koanf:"entropy_weight"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns"`
	Extensions []string `koanf:"extensions"`
	Dirs       []string `koanf:"dirs"`

	compiled []glob.Glob
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	TTL     int    `koanf:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
	Top     int    `koanf:"top"` // limit items shown, 0 for all
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			CoverageWeight:         0.40,
			ComplexityWeight:       0.40,
			DependencyWeight:       0.20,
			EntryPointMultiplier:   0.6,
			OrchestratorMultiplier: 0.8,
			LenientMissingCoverage: false,
		},
		Thresholds: ThresholdConfig{
			MinCyclomatic:     3,
			MinCognitive:      5,
			PatternRepetition: 0.7,
			TokenEntropy:      0.4,
			BranchSimilarity:  0.8,
			EntropyWeight:     1.0,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.css",
				"*.pb.go",
				"*_generated.go",
			},
			Extensions: []string{
				".lock",
				".sum",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".debtmap",
				"dist",
				"build",
				"target",
				"__pycache__",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".debtmap/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
			Top:    0,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"debtmap.toml",
		"debtmap.yaml",
		"debtmap.yml",
		"debtmap.json",
		".debtmap.toml",
		".debtmap.yaml",
		".debtmap.yml",
		".debtmap.json",
	}

	searchDirs := []string{".", ".debtmap"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				if err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// Validate checks that the configuration is internally consistent.
// An invalid configuration aborts analysis rather than producing
// silently-misweighted scores.
func (c *Config) Validate() error {
	s := c.Scoring
	if s.CoverageWeight < 0 || s.ComplexityWeight < 0 || s.DependencyWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	sum := s.CoverageWeight + s.ComplexityWeight + s.DependencyWeight
	if sum <= 0 {
		return fmt.Errorf("scoring weights must sum to a positive value, got %v", sum)
	}
	if s.EntryPointMultiplier <= 0 || s.OrchestratorMultiplier <= 0 {
		return fmt.Errorf("role multipliers must be positive")
	}
	if c.Thresholds.MinCyclomatic < 0 || c.Thresholds.MinCognitive < 0 {
		return fmt.Errorf("complexity thresholds must be non-negative")
	}
	if c.Thresholds.EntropyWeight < 0 || c.Thresholds.EntropyWeight > 1 {
		return fmt.Errorf("entropy weight must be in [0, 1], got %v", c.Thresholds.EntropyWeight)
	}
	return nil
}

// NormalizedWeights returns the scoring weights scaled to sum to 1.0.
func (s ScoringConfig) NormalizedWeights() (coverage, complexity, dependency float64) {
	sum := s.CoverageWeight + s.ComplexityWeight + s.DependencyWeight
	if sum == 0 {
		return 0, 0, 0
	}
	return s.CoverageWeight / sum, s.ComplexityWeight / sum, s.DependencyWeight / sum
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	path = filepath.ToSlash(path)

	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, "/"+dir+"/") || strings.HasPrefix(path, dir+"/") {
			return true
		}
	}

	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	if c.Exclude.compiled == nil {
		for _, pattern := range c.Exclude.Patterns {
			g, err := glob.Compile(pattern)
			if err != nil {
				continue
			}
			c.Exclude.compiled = append(c.Exclude.compiled, g)
		}
	}
	base := filepath.Base(path)
	for _, g := range c.Exclude.compiled {
		if g.Match(base) || g.Match(path) {
			return true
		}
	}

	return false
}
