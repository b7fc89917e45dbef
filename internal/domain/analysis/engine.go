package analysis

import (
	"sync"

	"github.com/studykit/session-integrity/internal/domain"
)

// Engine coordinates the fraud analyzers over one candidate session.
//
// The analyzers are provably independent of each other: each reads only its
// own slice of the per-call context, and none consumes another's output.
// They therefore run as a concurrent fan-out joined before aggregation,
// bounding the latency of one validation call to the slowest analyzer.
//
// The engine itself holds no mutable state; a single instance is safe for
// use from many goroutines at once.
type Engine struct {
	analyzers []Analyzer
}

// NewEngine creates an engine running the standard set of analyzers
func NewEngine() *Engine {
	return &Engine{
		analyzers: []Analyzer{
			NewBoundsAnalyzer(),
			NewHistoryPatternAnalyzer(),
			NewDeviceAnalyzer(),
			NewTimingAnalyzer(),
			NewPerformanceAnalyzer(),
		},
	}
}

// NewEngineWith creates an engine with a custom analyzer set
func NewEngineWith(analyzers ...Analyzer) *Engine {
	return &Engine{analyzers: analyzers}
}

// Analyze runs every analyzer concurrently against the candidate and joins
// their flags. Per-analyzer results land in fixed slots, so the combined
// order is deterministic (aggregation is order-independent regardless).
func (e *Engine) Analyze(c domain.SessionCandidate, actx *Context) []domain.RiskFlag {
	results := make([][]domain.RiskFlag, len(e.analyzers))

	var wg sync.WaitGroup
	for i, a := range e.analyzers {
		wg.Add(1)
		go func(i int, a Analyzer) {
			defer wg.Done()
			results[i] = a.Analyze(c, actx)
		}(i, a)
	}
	wg.Wait()

	flags := make([]domain.RiskFlag, 0)
	for _, r := range results {
		flags = append(flags, r...)
	}
	return flags
}
