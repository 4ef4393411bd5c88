package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"goinsight/domain/insight"
)

// RunAll evaluates several metrics over the same dataset and filters.
// Results keep the order of cfgs. Only cancellation of ctx is an error.
func (e *Engine) RunAll(ctx context.Context, ds insight.Dataset, cfgs []insight.MetricConfig, filters insight.Filters) ([]insight.NarrativeResult, error) {
	results := make([]insight.NarrativeResult, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range cfgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Run(ds, cfgs[i], filters.Clone())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
