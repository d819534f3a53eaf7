package quality_test

import (
	"testing"

	"codeberg.org/avhall/tierctl/internal/quality"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestControllerProperties checks the policy invariants over generated
// reading sequences rather than hand-picked scenarios: transitions move
// a single rank at a time, and the cooldown window debounces them.
func TestControllerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("a single evaluation never moves more than one tier", prop.ForAll(
		func(readings []int, start int) bool {
			src := &stubSource{history: readings}
			ctrl := quality.NewController(src, nil)

			if err := ctrl.SetTier(quality.Tier(start)); err != nil {
				return false
			}
			ctrl.Tick(quality.DefaultCooldownMs) // burn the override cooldown

			before := ctrl.QualityLevel()
			ctrl.Evaluate()
			after := ctrl.QualityLevel()

			diff := int(after) - int(before)
			return diff >= -1 && diff <= 1
		},
		gen.SliceOfN(10, gen.IntRange(0, 150)),
		gen.IntRange(int(quality.TierLow), int(quality.TierHigh)),
	))

	properties.Property("at most one transition per cooldown window", prop.ForAll(
		func(sequences [][]int) bool {
			src := &stubSource{}
			ctrl := quality.NewController(src, nil)

			const evaluateEveryMs = 2000.0
			simTime := 0.0
			lastTransition := -quality.DefaultCooldownMs

			for _, readings := range sequences {
				src.history = readings
				if ctrl.Evaluate() {
					if simTime-lastTransition < quality.DefaultCooldownMs {
						return false
					}
					lastTransition = simTime
				}
				ctrl.Tick(evaluateEveryMs)
				simTime += evaluateEveryMs
			}

			return true
		},
		gen.SliceOf(gen.SliceOfN(5, gen.IntRange(0, 150))),
	))

	properties.Property("reading history stays bounded", prop.ForAll(
		func(deltas []float64) bool {
			s := quality.NewSampler(60)
			for _, d := range deltas {
				s.RecordFrame(d)
			}
			return len(s.History()) <= quality.DefaultHistorySize
		},
		gen.SliceOf(gen.Float64Range(0.1, 400)),
	))

	properties.TestingRun(t)
}
