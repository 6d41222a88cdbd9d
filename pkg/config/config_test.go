package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cov, cpx, dep := cfg.Scoring.NormalizedWeights()
	assert.InDelta(t, 0.40, cov, 1e-9)
	assert.InDelta(t, 0.40, cpx, 1e-9)
	assert.InDelta(t, 0.20, dep, 1e-9)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debtmap.toml")
	content := `
[scoring]
coverage_weight = 0.5
complexity_weight = 0.3
dependency_weight = 0.2

[thresholds]
min_cyclomatic = 5
min_cognitive = 8

[output]
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Scoring.CoverageWeight)
	assert.Equal(t, 5, cfg.Thresholds.MinCyclomatic)
	assert.Equal(t, 8, cfg.Thresholds.MinCognitive)
	assert.Equal(t, "json", cfg.Output.Format)
	// Untouched sections keep defaults.
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debtmap.yaml")
	content := `
scoring:
  entry_point_multiplier: 0.5
cache:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Scoring.EntryPointMultiplier)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadRejectsInvalidWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debtmap.toml")
	content := `
[scoring]
coverage_weight = -1.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scoring.CoverageWeight = 0
	cfg.Scoring.ComplexityWeight = 0
	cfg.Scoring.DependencyWeight = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Thresholds.EntropyWeight = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Scoring.EntryPointMultiplier = 0
	assert.Error(t, cfg.Validate())
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.ShouldExclude("vendor/lib/foo.go"))
	assert.True(t, cfg.ShouldExclude("src/node_modules/pkg/index.js"))
	assert.True(t, cfg.ShouldExclude("assets/app.min.js"))
	assert.True(t, cfg.ShouldExclude("api/service.pb.go"))
	assert.True(t, cfg.ShouldExclude("go.sum"))

	assert.False(t, cfg.ShouldExclude("src/main.go"))
	assert.False(t, cfg.ShouldExclude("pkg/service/handler.py"))
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(orig) }()

	cfg := LoadOrDefault()
	assert.Equal(t, DefaultConfig().Scoring, cfg.Scoring)
}
