// Package lattice provides constraint solving over abstract domains.
// This file defines portfolio search: several clones of the composition
// race on the same problem with different strategies. Each clone is fully
// independent (cloned through its own dependency tracker), so the core's
// single-threaded model holds inside every worker.
package lattice

import (
	"context"
	"sync"

	"github.com/gitrdm/golattice/internal/parallel"
)

// PortfolioResult is the outcome of one portfolio worker.
type PortfolioResult struct {
	Strategy  Strategy
	Solutions []Solution
	Stats     Statistics
	Err       error
}

// SolvePortfolio solves the problem once per strategy, in parallel, and
// returns every worker's result in strategy order together with the index
// of the winner. For satisfaction problems the winner is the first
// strategy (by index) that found a solution; for optimization it is the
// strategy with the best proven bound. The receiver solver is left
// untouched; workers run on clones.
//
// The winner index is -1 when no worker found a solution.
func (s *Solver) SolvePortfolio(ctx context.Context, strategies []Strategy, limit int) ([]PortfolioResult, int, error) {
	results := make([]PortfolioResult, len(strategies))
	pool := parallel.NewWorkerPool(len(strategies))
	defer pool.Shutdown()

	var wg sync.WaitGroup
	for i, strat := range strategies {
		i, strat := i, strat
		clone := s.clone()
		wg.Add(1)
		task := func() {
			defer wg.Done()
			clone.tree.Deduce(SearchTreeTell{Split: []Strategy{strat}})
			sols, err := clone.Solve(ctx, limit)
			results[i] = PortfolioResult{
				Strategy:  strat,
				Solutions: sols,
				Stats:     clone.Stats(),
				Err:       err,
			}
		}
		if err := pool.Submit(ctx, task); err != nil {
			wg.Done()
			results[i] = PortfolioResult{Strategy: strat, Err: err}
		}
	}
	wg.Wait()

	winner := -1
	if s.bab.IsOptimization() {
		var bestBound Interval
		for i, r := range results {
			if len(r.Solutions) == 0 {
				continue
			}
			bound := r.Solutions[0].Values[s.bab.ObjectiveVar().VID()]
			better := winner == -1
			if !better {
				if s.bab.IsMinimization() {
					better = bound.Lb < bestBound.Lb
				} else {
					better = bound.Ub > bestBound.Ub
				}
			}
			if better {
				winner = i
				bestBound = bound
			}
		}
	} else {
		for i, r := range results {
			if len(r.Solutions) > 0 {
				winner = i
				break
			}
		}
	}
	return results, winner, ctx.Err()
}
