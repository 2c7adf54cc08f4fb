package search

import "github.com/poiesic/safetyrag/core"

// SearchMonitor observes the stages of a single query.
type SearchMonitor interface {
	Start(query string)
	StrategySelected(strategy core.Strategy)
	Fallback(reason error)
	ScoringFailed(err *ScoringError)
	Hit(result *core.ScoredResult)
	Finish(results []*core.ScoredResult)
}

type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                   {}
func (n *noopMonitor) StrategySelected(_ core.Strategy) {}
func (n *noopMonitor) Fallback(_ error)                 {}
func (n *noopMonitor) ScoringFailed(_ *ScoringError)    {}
func (n *noopMonitor) Hit(_ *core.ScoredResult)         {}
func (n *noopMonitor) Finish(_ []*core.ScoredResult)    {}
