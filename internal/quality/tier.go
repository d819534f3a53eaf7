package quality

import "codeberg.org/avhall/tierctl/internal/errors"

// Tier identifies one of the ordered quality levels the controller can
// operate at. The numeric order is the ranking: TierLow < TierMedium < TierHigh.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// IsValid returns whether the tier is one of the known levels
func (t Tier) IsValid() bool {
	return t >= TierLow && t <= TierHigh
}

// ParseTier converts a tier name from configuration into a Tier
func ParseTier(name string) (Tier, error) {
	switch name {
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	default:
		return TierHigh, errors.New().WithData(errors.ErrInvalidTier, name)
	}
}

// Settings is the named parameter set handed to the applier when a tier
// is committed. The controller attaches no meaning to the keys.
type Settings map[string]int

func (s Settings) clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}

	return out
}

// DefaultTierSettings returns the built-in settings mapping per tier.
// The daemon overrides individual values from the config file.
func DefaultTierSettings() map[Tier]Settings {
	return map[Tier]Settings{
		TierHigh: {
			"shadow_quality":   2,
			"texture_detail":   2,
			"particle_density": 100,
			"post_processing":  1,
			"draw_distance":    300,
		},
		TierMedium: {
			"shadow_quality":   1,
			"texture_detail":   1,
			"particle_density": 60,
			"post_processing":  1,
			"draw_distance":    200,
		},
		TierLow: {
			"shadow_quality":   0,
			"texture_detail":   0,
			"particle_density": 25,
			"post_processing":  0,
			"draw_distance":    120,
		},
	}
}
