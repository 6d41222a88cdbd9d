// Package pipeline orchestrates a full analysis run: call graph
// construction, dispatch resolution, purity classification, complexity
// measurement, and scoring, behind a fingerprint-keyed result cache.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/iepathos/debtmap/internal/cache"
	"github.com/iepathos/debtmap/internal/fileproc"
	"github.com/iepathos/debtmap/pkg/analyzer"
	"github.com/iepathos/debtmap/pkg/analyzer/callgraph"
	"github.com/iepathos/debtmap/pkg/analyzer/complexity"
	"github.com/iepathos/debtmap/pkg/analyzer/coverage"
	"github.com/iepathos/debtmap/pkg/analyzer/purity"
	"github.com/iepathos/debtmap/pkg/analyzer/score"
	"github.com/iepathos/debtmap/pkg/config"
	"github.com/iepathos/debtmap/pkg/parser"
	"github.com/iepathos/debtmap/pkg/source"
)

// orchestratorMinCallees is the delegation degree past which a function's
// missing unit coverage is discounted: it mostly hands work to functions
// that carry their own coverage pressure.
const orchestratorMinCallees = 5

// UnifiedAnalysis is the complete output of one pipeline run.
type UnifiedAnalysis struct {
	Items       []score.UnifiedDebtItem `json:"items"`
	Diagnostics []analyzer.Diagnostic   `json:"diagnostics,omitempty"`
	Fingerprint string                  `json:"fingerprint"`
	Summary     Summary                 `json:"summary"`

	// FromCache reports whether this result was served from the result
	// cache rather than recomputed.
	FromCache bool `json:"-"`
}

// Summary provides aggregate counts for the run.
type Summary struct {
	FilesAnalyzed  int `json:"files_analyzed"`
	TotalFunctions int `json:"total_functions"`
	ItemCount      int `json:"item_count"`
	EdgeCount      int `json:"edge_count"`
}

// Pipeline runs analyses. Safe for concurrent use; concurrent runs with
// the same fingerprint share a single computation.
type Pipeline struct {
	cfg    *config.Config
	cache  *cache.Cache
	cov    *coverage.Data
	covRaw []byte

	group singleflight.Group

	mu      sync.Mutex
	corrupt []analyzer.Diagnostic
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCoverage supplies a parsed coverage report along with the raw bytes
// it was parsed from. The raw bytes go into the fingerprint.
func WithCoverage(data *coverage.Data, raw []byte) Option {
	return func(p *Pipeline) {
		p.cov = data
		p.covRaw = raw
	}
}

// WithCache replaces the cache built from configuration, mainly for tests.
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// New creates a pipeline. An invalid configuration is the one fatal
// condition here: no partial analysis is possible without trustworthy
// weights and thresholds.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.cache == nil {
		c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		p.cache = c
	}
	p.cache.OnCorrupt = func(key string, err error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.corrupt = append(p.corrupt, analyzer.Diagnostic{
			Kind:   analyzer.DiagCacheCorruption,
			Detail: fmt.Sprintf("cache entry %s: %v", key, err),
		})
	}

	return p, nil
}

// Run analyzes files and returns a ranked debt report. Per-file and
// per-call-site failures are recovered into diagnostics; only fingerprint
// I/O failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, files []string, src source.ContentSource) (*UnifiedAnalysis, error) {
	fp, err := Fingerprint(files, src, p.covRaw, p.cfg)
	if err != nil {
		return nil, err
	}

	v, err, _ := p.group.Do(fp, func() (any, error) {
		if ua, ok := p.lookup(fp); ok {
			return ua, nil
		}

		ua, err := p.compute(ctx, files, src)
		if err != nil {
			return nil, err
		}
		ua.Fingerprint = fp
		ua.Diagnostics = append(p.takeCorruption(), ua.Diagnostics...)

		if data, err := json.Marshal(ua); err == nil {
			_ = p.cache.SetWithHash(fp, fp, data)
		}
		return ua, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*UnifiedAnalysis), nil
}

// lookup tries the result cache. A stored entry that no longer decodes is
// invalidated and reported as corruption on the next computed result.
func (p *Pipeline) lookup(fp string) (*UnifiedAnalysis, bool) {
	data, ok := p.cache.GetWithHash(fp, fp)
	if !ok {
		return nil, false
	}

	var ua UnifiedAnalysis
	if err := json.Unmarshal(data, &ua); err != nil {
		_ = p.cache.Invalidate(fp)
		p.mu.Lock()
		p.corrupt = append(p.corrupt, analyzer.Diagnostic{
			Kind:   analyzer.DiagCacheCorruption,
			Detail: fmt.Sprintf("cached result %s: %v", fp, err),
		})
		p.mu.Unlock()
		return nil, false
	}

	ua.FromCache = true
	return &ua, true
}

func (p *Pipeline) takeCorruption() []analyzer.Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()
	diags := p.corrupt
	p.corrupt = nil
	return diags
}

// functionFacts pairs the per-function measurements produced by the
// parallel parse pass.
type functionFacts struct {
	Metrics complexity.FunctionResult
	Purity  purity.Analysis
	EndLine int
}

type fileFacts struct {
	Path      string
	Functions map[callgraph.FunctionID]functionFacts
}

func (p *Pipeline) compute(ctx context.Context, files []string, src source.ContentSource) (*UnifiedAnalysis, error) {
	tracker := analyzer.TrackerFromContext(ctx)

	builder := callgraph.NewBuilder()
	g, reg, diags := builder.Build(ctx, files, src)

	resolver := callgraph.NewResolver()
	_, resolveDiags := resolver.Resolve(reg, g)
	diags = append(diags, resolveDiags...)
	diags = append(diags, g.Orphans()...)
	diags = append(diags, graphShapeDiagnostics(g)...)

	// Measure and classify every function, one parse per file in parallel.
	if tracker != nil {
		tracker.Add(len(files))
	}
	classifier := purity.NewClassifier()
	results, _ := fileproc.MapFilesWithContext(ctx, files, func(psr *parser.Parser, path string) (fileFacts, error) {
		data, err := src.ReadFile(path)
		if err != nil {
			return fileFacts{}, err
		}
		res, err := psr.Parse(ctx, path, data)
		if err != nil {
			return fileFacts{}, err
		}
		defer res.Close()

		facts := fileFacts{Path: path, Functions: make(map[callgraph.FunctionID]functionFacts)}
		for _, fn := range parser.ExtractFunctions(res) {
			id := callgraph.FunctionID{File: path, Name: fn.QualifiedName, Line: fn.StartLine}
			facts.Functions[id] = functionFacts{
				Metrics: complexity.AnalyzeFunction(fn, res),
				Purity:  classifier.Classify(fn, res),
				EndLine: fn.EndLine,
			}
		}
		if tracker != nil {
			tracker.Tick(path)
		}
		return facts, nil
	})

	facts := make(map[callgraph.FunctionID]functionFacts)
	for _, ff := range results {
		for id, f := range ff.Functions {
			facts[id] = f
		}
	}

	calc := score.NewCalculator(p.cfg)
	items := make([]score.UnifiedDebtItem, 0, len(facts))

	nodes := g.Nodes()
	if tracker != nil {
		tracker.Add(len(nodes))
	}
	for _, n := range nodes {
		node := g.Function(n)
		if tracker != nil {
			tracker.Tick(node.ID.Name)
		}
		fact, ok := facts[node.ID]
		if !ok {
			continue
		}

		stats := score.GraphStats{
			ProductionCallers: g.TransitiveProductionCallers(n),
			Orchestrator:      isOrchestrator(g, n),
			IsTest:            node.IsTest,
		}
		stats.DirectProductionCallers, stats.TestCallers = g.CallerCounts(n)

		var cov *score.CoverageStat
		if pct, known := p.cov.Percent(node.ID.File, node.ID.Line, fact.EndLine); known {
			cov = &score.CoverageStat{Percent: pct}
		} else if !p.cov.Empty() && !node.IsTest {
			diags = append(diags, analyzer.Diagnostic{
				Kind:   analyzer.DiagMissingCoverage,
				Path:   node.ID.File,
				Line:   node.ID.Line,
				Detail: fmt.Sprintf("no coverage data for %s", node.ID.Name),
			})
		}

		item, keep := calc.Calculate(node.ID, fact.Metrics, cov, stats, fact.Purity, node.Role)
		if keep {
			items = append(items, item)
		}
	}

	score.SortItems(items)

	return &UnifiedAnalysis{
		Items:       items,
		Diagnostics: diags,
		Summary: Summary{
			FilesAnalyzed:  len(files),
			TotalFunctions: g.NodeCount(),
			ItemCount:      len(items),
			EdgeCount:      g.EdgeCount(),
		},
	}, nil
}

// graphShapeDiagnostics reports structural findings from the resolved call
// graph: strongly connected call cycles, and production functions that no
// entry point reaches. Both are informational; items still score normally.
func graphShapeDiagnostics(g *callgraph.Graph) []analyzer.Diagnostic {
	var diags []analyzer.Diagnostic
	for _, cycle := range g.Cycles() {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = id.Name
		}
		diags = append(diags, analyzer.Diagnostic{
			Kind:   analyzer.DiagCallCycle,
			Path:   cycle[0].File,
			Line:   cycle[0].Line,
			Detail: "call cycle: " + strings.Join(names, " -> "),
		})
	}

	seeds := g.EntryPoints()
	if len(seeds) == 0 {
		// Without entry points every node is trivially unreachable,
		// which says nothing useful about library-style trees.
		return diags
	}
	reachable := g.Reachable(seeds)
	for _, n := range g.Nodes() {
		if reachable.Contains(n) {
			continue
		}
		node := g.Function(n)
		switch node.Role.Kind {
		case callgraph.RoleEntryPoint, callgraph.RoleTraitEntryPoint, callgraph.RoleConstructor:
			continue
		}
		if node.IsTest {
			continue
		}
		if len(g.Callers(n)) == 0 && len(g.Callees(n)) == 0 {
			// Already reported as an orphan.
			continue
		}
		diags = append(diags, analyzer.Diagnostic{
			Kind:   analyzer.DiagUnreachableFunction,
			Path:   node.ID.File,
			Line:   node.ID.Line,
			Detail: node.ID.Name + " is not reachable from any entry point",
		})
	}
	return diags
}

// isOrchestrator reports whether a function delegates to enough distinct
// callees that integration-style testing is the realistic way to cover it.
func isOrchestrator(g *callgraph.Graph, n callgraph.NodeID) bool {
	seen := make(map[callgraph.NodeID]struct{})
	for _, e := range g.Callees(n) {
		if e.Callee != n {
			seen[e.Callee] = struct{}{}
		}
	}
	return len(seen) >= orchestratorMinCallees
}
