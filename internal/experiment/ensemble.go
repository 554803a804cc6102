package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
)

// RunEnsemble runs cfg once for every seed in [cfg.Seed, cfg.Seed+runs),
// at most parallel at a time. Results are in seed order.
func RunEnsemble(ctx context.Context, cfg *config.Config, runs, parallel int) ([]*dynamo.Result, error) {
	if runs <= 0 {
		return nil, fmt.Errorf("experiment: ensemble runs = %d, want > 0", runs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory := func(seed uint64) (*dynamo.Simulator, error) {
		sim, err := Build(cfg, seed)
		if err != nil {
			return nil, err
		}
		for _, m := range DefaultMetrics(cfg) {
			sim.AddMetric(m)
		}
		if cfg.TrackEnergy {
			sim.AddMetric(metrics.NewEnergy(cfg.Physics.G, cfg.Physics.Softening))
		}
		return sim, nil
	}

	ens := dynamo.NewEnsemble(factory, runs, cfg.Seed)
	ens.SetLimit(parallel)
	return ens.Run(ctx, cfg.RunConfig())
}
