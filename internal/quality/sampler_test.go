package quality_test

import (
	"testing"

	"codeberg.org/avhall/tierctl/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentRateDefaultsToNominal(t *testing.T) {
	s := quality.NewSampler(60)

	assert.Equal(t, 60, s.CurrentRate(), "Expected nominal rate before the first window closes")
	assert.Empty(t, s.History())
}

func TestRecordFrameIgnoresNonPositiveDeltas(t *testing.T) {
	s := quality.NewSampler(60)

	s.RecordFrame(0)
	s.RecordFrame(-16.7)

	assert.Equal(t, 60, s.CurrentRate())
	assert.Empty(t, s.History(), "Rejected deltas must not contribute to a window")
}

func TestWindowCloseComputesRoundedRate(t *testing.T) {
	s := quality.NewSampler(60)

	// 3 frames over 1050ms: 3000/1050 = 2.857, rounds to 3
	s.RecordFrame(350)
	s.RecordFrame(350)
	s.RecordFrame(350)

	require.Equal(t, []int{3}, s.History())
	assert.Equal(t, 3, s.CurrentRate())

	// 2 frames over 1400ms: 2000/1400 = 1.429, rounds to 1
	s.RecordFrame(700)
	s.RecordFrame(700)

	assert.Equal(t, []int{3, 1}, s.History())
	assert.Equal(t, 1, s.CurrentRate())
}

func TestWindowDoesNotCloseBeforeFullSecond(t *testing.T) {
	s := quality.NewSampler(60)

	s.RecordFrame(333)
	s.RecordFrame(333)
	s.RecordFrame(333)

	assert.Empty(t, s.History(), "999ms accumulated must not close a 1000ms window")
	assert.Equal(t, 60, s.CurrentRate())
}

func TestHistoryBoundAndFIFOEviction(t *testing.T) {
	s := quality.NewSampler(60)

	// Produce distinguishable readings 1..12: k frames of just over
	// 1000/k ms each close one window with rate k.
	for k := 1; k <= 12; k++ {
		duration := 1000.0/float64(k) + 0.01
		for i := 0; i < k; i++ {
			s.RecordFrame(duration)
		}
	}

	history := s.History()
	require.Len(t, history, quality.DefaultHistorySize)
	assert.Equal(t, 3, history[0], "Oldest readings must be evicted first")
	assert.Equal(t, 12, history[len(history)-1])
}

func TestCustomWindowAndCapacity(t *testing.T) {
	s := quality.NewSamplerWith(30, 500, 4)

	for i := 0; i < 6; i++ {
		s.RecordFrame(250)
		s.RecordFrame(250)
	}

	assert.Len(t, s.History(), 4)
	assert.Equal(t, 4, s.CurrentRate(), "2 frames per 500ms window is 4 frames/sec")
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := quality.NewSampler(60)
	s.RecordFrame(1000)

	history := s.History()
	history[0] = 999

	assert.Equal(t, []int{1}, s.History())
}

func TestResetClearsReadings(t *testing.T) {
	s := quality.NewSampler(60)
	s.RecordFrame(1000)
	require.NotEmpty(t, s.History())

	s.Reset()

	assert.Empty(t, s.History())
	assert.Equal(t, 60, s.CurrentRate(), "Reset restores the nominal default")
}
