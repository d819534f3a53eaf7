// Package workload provides a synthetic frame producer standing in for
// the external system being governed. It implements quality.Applier, so
// the daemon forms a closed loop: heavier settings raise the simulated
// frame cost, which lowers the measured rate, which drives the
// controller back down the tiers.
package workload

import (
	"math/rand"
	"sync"
	"time"

	"codeberg.org/avhall/tierctl/internal/logger"
	"codeberg.org/avhall/tierctl/internal/quality"
)

const defaultJitter = 0.05

// Cost weights per setting, normalized so the default high tier lands at
// a factor of 1.0 against the nominal frame budget.
const (
	baseCostShare     = 0.30
	shadowCostShare   = 0.20
	particleCostShare = 0.25
	postCostShare     = 0.15
	textureCostShare  = 0.10
)

// Simulator models per-frame cost as a function of the applied tier
// settings and an external load multiplier.
type Simulator struct {
	mu         sync.RWMutex
	budgetMs   float64 // nominal frame budget at the high tier
	load       float64
	jitter     float64
	costFactor float64
	tier       quality.Tier
	settings   quality.Settings
	rng        *rand.Rand
}

// NewSimulator builds a simulator running at the high tier. targetRate
// is the nominal throughput the workload sustains at the high tier under
// load 1.0.
func NewSimulator(targetRate int, load float64) *Simulator {
	if targetRate <= 0 {
		targetRate = 60
	}
	if load <= 0 {
		load = 1.0
	}

	s := &Simulator{
		budgetMs: 1000 / float64(targetRate),
		load:     load,
		jitter:   defaultJitter,
		tier:     quality.TierHigh,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.Apply(quality.TierHigh, quality.DefaultTierSettings()[quality.TierHigh])

	return s
}

// Apply implements quality.Applier
func (s *Simulator) Apply(tier quality.Tier, settings quality.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tier = tier
	s.settings = settings
	s.costFactor = costFactor(settings)

	logger.Info().
		Str("tier", tier.String()).
		Float64("cost_factor", s.costFactor).
		Msg("Workload settings applied")
}

// FrameTime returns the simulated cost of the next frame in milliseconds
func (s *Simulator) FrameTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cost := s.budgetMs * s.load * s.costFactor
	if s.jitter > 0 {
		cost *= 1 + s.jitter*(s.rng.Float64()*2-1)
	}

	return cost
}

// SetLoad updates the external load multiplier
func (s *Simulator) SetLoad(load float64) {
	if load <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load = load
}

// SetJitter updates the per-frame cost jitter fraction
func (s *Simulator) SetJitter(jitter float64) {
	if jitter < 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jitter = jitter
}

// Tier returns the most recently applied tier
func (s *Simulator) Tier() quality.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tier
}

func costFactor(settings quality.Settings) float64 {
	reference := quality.DefaultTierSettings()[quality.TierHigh]

	factor := baseCostShare
	factor += shadowCostShare * ratio(settings, reference, "shadow_quality")
	factor += particleCostShare * ratio(settings, reference, "particle_density")
	factor += postCostShare * ratio(settings, reference, "post_processing")
	factor += textureCostShare * ratio(settings, reference, "texture_detail")

	return factor
}

func ratio(settings, reference quality.Settings, key string) float64 {
	ref := reference[key]
	if ref == 0 {
		return 0
	}

	return float64(settings[key]) / float64(ref)
}
