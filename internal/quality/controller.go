package quality

import (
	"sync"

	"codeberg.org/avhall/tierctl/internal/errors"
	"codeberg.org/avhall/tierctl/internal/logger"
)

const (
	// DefaultCooldownMs is the minimum dwell time after a transition
	DefaultCooldownMs = 5000.0
	// DefaultMinHistory is the number of readings required before evaluation
	DefaultMinHistory = 3

	DefaultDowngradeHigh   = 50
	DefaultDowngradeMedium = 35
	DefaultUpgradeMean     = 58
	DefaultUpgradeFloor    = 55
)

// Thresholds carries the transition policy boundaries. Downgrade bounds
// stay strictly below the upgrade bound; the gap is the hysteresis band
// that keeps a rate hovering near a boundary from flapping the tier.
type Thresholds struct {
	DowngradeHigh   int // high → medium when the mean falls below
	DowngradeMedium int // medium → low when the mean falls below
	UpgradeMean     int // upgrade considered when the mean rises above
	UpgradeFloor    int // and every reading in the history stays above
}

// DefaultThresholds returns the reference policy boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{
		DowngradeHigh:   DefaultDowngradeHigh,
		DowngradeMedium: DefaultDowngradeMedium,
		UpgradeMean:     DefaultUpgradeMean,
		UpgradeFloor:    DefaultUpgradeFloor,
	}
}

// Validate enforces the hysteresis ordering of the boundaries
func (t Thresholds) Validate() error {
	errFactory := errors.New()

	if t.DowngradeMedium >= t.DowngradeHigh {
		return errFactory.WithData(errors.ErrInvalidThreshold, "downgrade_medium must be below downgrade_high")
	}
	if t.DowngradeHigh >= t.UpgradeMean {
		return errFactory.WithData(errors.ErrInvalidThreshold, "downgrade_high must be below upgrade_mean")
	}
	if t.UpgradeFloor >= t.UpgradeMean {
		return errFactory.WithData(errors.ErrInvalidThreshold, "upgrade_floor must be below upgrade_mean")
	}

	return nil
}

// Controller owns the tier state machine. It consumes readings from a
// RateSource, decides transitions, and hands the committed tier's
// settings to the applier. There is exactly one writer; the RWMutex
// gives timer goroutines and external queries a sequential view.
type Controller struct {
	mu               sync.RWMutex
	source           RateSource
	applier          Applier
	tiers            map[Tier]Settings
	thresholds       Thresholds
	cooldownWindowMs float64
	minHistory       int

	tier       Tier
	cooldownMs float64
}

// Option configures a Controller
type Option func(*Controller)

// WithThresholds overrides the transition policy boundaries
func WithThresholds(t Thresholds) Option {
	return func(c *Controller) {
		c.thresholds = t
	}
}

// WithCooldownWindow overrides the post-transition dwell time in milliseconds
func WithCooldownWindow(ms float64) Option {
	return func(c *Controller) {
		if ms > 0 {
			c.cooldownWindowMs = ms
		}
	}
}

// WithTierSettings overrides the settings mapping handed to the applier
func WithTierSettings(tiers map[Tier]Settings) Option {
	return func(c *Controller) {
		if len(tiers) > 0 {
			c.tiers = tiers
		}
	}
}

// WithMinHistory overrides the number of readings required before evaluation
func WithMinHistory(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minHistory = n
		}
	}
}

// NewController builds a controller starting at the high tier with no
// cooldown. A nil applier is allowed: transitions still commit
// internally and remain queryable.
func NewController(source RateSource, applier Applier, opts ...Option) *Controller {
	c := &Controller{
		source:           source,
		applier:          applier,
		tiers:            DefaultTierSettings(),
		thresholds:       DefaultThresholds(),
		cooldownWindowMs: DefaultCooldownMs,
		minHistory:       DefaultMinHistory,
		tier:             TierHigh,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Tick decays the transition cooldown. Called once per host update tick,
// independent of the evaluation cadence. Non-positive deltas are ignored.
func (c *Controller) Tick(deltaMs float64) {
	if deltaMs <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cooldownMs -= deltaMs
	if c.cooldownMs < 0 {
		c.cooldownMs = 0
	}
}

// Evaluate runs the transition policy against the current reading
// history. It does nothing while the history is too short or a cooldown
// is pending. Transitions move one tier at a time; a rate recovering
// from low must pass through medium before reaching high. Returns
// whether a transition was committed.
func (c *Controller) Evaluate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := c.source.History()
	if len(history) < c.minHistory || c.cooldownMs > 0 {
		return false
	}

	mean := meanOf(history)

	// First match wins; the arms are mutually exclusive by construction.
	switch {
	case c.tier == TierHigh && mean < float64(c.thresholds.DowngradeHigh):
		c.transition(TierMedium)
	case c.tier == TierMedium && mean < float64(c.thresholds.DowngradeMedium):
		c.transition(TierLow)
	case c.tier == TierLow && mean > float64(c.thresholds.UpgradeMean) && allAbove(history, c.thresholds.UpgradeFloor):
		c.transition(TierMedium)
	case c.tier == TierMedium && mean > float64(c.thresholds.UpgradeMean) && allAbove(history, c.thresholds.UpgradeFloor):
		c.transition(TierHigh)
	default:
		return false
	}

	return true
}

// SetTier is the manual override edge: a first-class transition from any
// state to any state. It bypasses the threshold policy but still resets
// the cooldown and invokes the applier.
func (c *Controller) SetTier(tier Tier) error {
	if !tier.IsValid() {
		return errors.New().WithData(errors.ErrInvalidTier, int(tier))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.transition(tier)

	return nil
}

// transition commits the new tier. Caller holds c.mu.
func (c *Controller) transition(to Tier) {
	from := c.tier
	c.tier = to
	c.cooldownMs = c.cooldownWindowMs

	logger.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Quality tier changed")

	if c.applier != nil {
		c.applier.Apply(to, c.tiers[to].clone())
	}
}

// CurrentFPS returns the most recent throughput reading
func (c *Controller) CurrentFPS() int {
	return c.source.CurrentRate()
}

// QualityLevel returns the active tier
func (c *Controller) QualityLevel() Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tier
}

// CurrentSettings returns a copy of the active tier's settings mapping
func (c *Controller) CurrentSettings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tiers[c.tier].clone()
}

// CooldownRemaining returns the pending cooldown in milliseconds
func (c *Controller) CooldownRemaining() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cooldownMs
}

// Reset restores the initial controller state: high tier, no cooldown.
// The reading history is owned by the source and reset separately.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tier = TierHigh
	c.cooldownMs = 0
}

func meanOf(readings []int) float64 {
	sum := 0
	for _, r := range readings {
		sum += r
	}

	return float64(sum) / float64(len(readings))
}

func allAbove(readings []int, floor int) bool {
	for _, r := range readings {
		if r <= floor {
			return false
		}
	}

	return true
}
