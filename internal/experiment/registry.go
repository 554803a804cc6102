package experiment

import (
	"errors"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
)

// escapeRadius is the distance from the center of mass beyond which a body
// counts as escaped for the stability metric.
const escapeRadius = 1.0e10

// DefaultMetrics are attached to every experiment. Energy metrics cost a
// full O(N²) pass per step and are left out unless cfg.TrackEnergy is set.
func DefaultMetrics(cfg *config.Config) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewMomentumDrift(),
		metrics.NewMaxSpeed(),
		metrics.NewStability(escapeRadius),
	}
	if cfg.TrackEnergy {
		ms = append(ms, metrics.NewEnergyDrift(cfg.Physics.G, cfg.Physics.Softening))
	}
	return ms
}

type BackendInfo struct {
	Kind      compute.Kind
	Name      string
	Available bool
	Err       error
}

// ProbeBackends constructs every backend kind once and reports which ones
// this machine can run.
func ProbeBackends(opts compute.Options) []BackendInfo {
	kinds := compute.Kinds()
	out := make([]BackendInfo, 0, len(kinds))
	for _, kind := range kinds {
		info := BackendInfo{Kind: kind}
		b, err := compute.New(kind, opts)
		if err != nil {
			info.Err = err
		} else {
			info.Name = b.Name()
			info.Available = true
			b.Cleanup()
		}
		out = append(out, info)
	}
	return out
}

// IsDeviceError reports whether err only means the accelerator is absent.
func IsDeviceError(err error) bool {
	return errors.Is(err, compute.ErrDeviceUnavailable)
}
