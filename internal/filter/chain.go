package filter

import (
	"github.com/standardbeagle/stylefire/internal/config"
	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/tree"
	"github.com/standardbeagle/stylefire/internal/types"
)

// Chain applies strategies in order
type Chain struct {
	strategies []ReduceStrategy
}

// NewChain creates a chain from explicit strategies
func NewChain(strategies ...ReduceStrategy) *Chain {
	return &Chain{strategies: strategies}
}

// Build assembles the chain for one event from the enabled settings, in the
// order media, file, open documents, routed URL. The URL strategy is only
// added when a base URL is known.
func Build(settings config.Settings, event types.ChangeEvent, docs DocumentSet, baseURL string) *Chain {
	var strategies []ReduceStrategy
	if settings.MediaReduce {
		strategies = append(strategies, NewMediaReduce(event.Media))
	}
	if settings.FileReduce {
		strategies = append(strategies, NewFileReduce(event.Filename))
	}
	if settings.CurrentDocumentsReduce {
		strategies = append(strategies, NewCurrentDocumentsReduce(docs))
	}
	if settings.UseRoutes && baseURL != "" {
		strategies = append(strategies, NewURLReduce(baseURL, event.Path))
	}
	return NewChain(strategies...)
}

// Strategies returns the strategy names in application order
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of strategies
func (c *Chain) Len() int {
	return len(c.strategies)
}

// Reduce runs every strategy over candidates and returns the survivors
func (c *Chain) Reduce(candidates []tree.DeclarationPath) []tree.DeclarationPath {
	if debug.IsDebugEnabled() {
		debug.LogFilter("filtering %d candidates\n", len(candidates))
		for _, p := range candidates {
			debug.LogFilter("  candidate: %s\n", p)
		}
	}
	for _, s := range c.strategies {
		candidates = s.Reduce(candidates)
	}
	debug.LogFilter("filtering done, %d remaining\n", len(candidates))
	return candidates
}

var _ ReduceStrategy = (*Chain)(nil)

// Name implements ReduceStrategy so chains can nest
func (c *Chain) Name() string { return "chain" }
