// Package analyzer defines the shared contracts used by the analysis
// passes: the file analyzer interface and context-based progress tracking.
package analyzer

import (
	"context"

	"github.com/iepathos/debtmap/pkg/source"
)

// FileAnalyzer is the interface that all file-based analyzers implement.
type FileAnalyzer[T any] interface {
	// Analyze processes a collection of files from src and returns the
	// analysis result. The context can be used for cancellation and
	// progress reporting.
	Analyze(ctx context.Context, files []string, src source.ContentSource) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
