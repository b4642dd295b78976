package simulation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is one simulation's outcome within a batch.
type Result struct {
	Simulation *Simulation
	Events     []Event
	Err        error
}

// RunBatch runs every simulation to completion concurrently, at most
// limit at a time (limit <= 0 means unbounded). A failed run does not
// stop its siblings; each result carries its own events and error, in
// the same order as the input.
func RunBatch(ctx context.Context, sims []*Simulation, interactionsPerScene, limit int) []Result {
	results := make([]Result, len(sims))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sim := range sims {
		g.Go(func() error {
			events, err := sim.RunAuto(ctx, interactionsPerScene)
			results[i] = Result{Simulation: sim, Events: events, Err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // every goroutine returns nil; failures live in results
	return results
}
