package quality

import (
	"math"
	"sync"
)

const (
	// DefaultWindowMs is the accumulation window for one throughput reading
	DefaultWindowMs = 1000.0
	// DefaultHistorySize bounds the reading history
	DefaultHistorySize = 10
)

// Sampler converts per-tick frame deltas into windowed throughput
// readings and keeps a bounded FIFO history of the most recent ones.
type Sampler struct {
	mu          sync.RWMutex
	windowMs    float64
	historySize int
	nominalRate int

	frames    int
	elapsedMs float64
	history   []int
	lastRate  int
	haveRate  bool
}

// NewSampler builds a sampler with the default window and history capacity.
// nominalRate is reported by CurrentRate until the first window closes.
func NewSampler(nominalRate int) *Sampler {
	return NewSamplerWith(nominalRate, DefaultWindowMs, DefaultHistorySize)
}

// NewSamplerWith builds a sampler with an explicit window and history capacity
func NewSamplerWith(nominalRate int, windowMs float64, historySize int) *Sampler {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}

	return &Sampler{
		windowMs:    windowMs,
		historySize: historySize,
		nominalRate: nominalRate,
	}
}

// RecordFrame contributes one frame's elapsed time. Non-positive deltas
// are a caller bug and are ignored. Once the accumulated time reaches the
// window, a reading is computed and appended to the history.
func (s *Sampler) RecordFrame(deltaMs float64) {
	if deltaMs <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	s.elapsedMs += deltaMs

	if s.elapsedMs >= s.windowMs {
		s.closeWindow()
	}
}

// closeWindow computes the reading and resets the accumulators. A window
// never closes on zero elapsed time.
func (s *Sampler) closeWindow() {
	if s.elapsedMs <= 0 {
		return
	}

	rate := int(math.Round(float64(s.frames) * 1000 / s.elapsedMs))
	s.frames = 0
	s.elapsedMs = 0
	s.lastRate = rate
	s.haveRate = true

	s.history = append(s.history, rate)
	if len(s.history) > s.historySize {
		s.history = s.history[1:]
	}
}

// CurrentRate returns the most recent reading, or the nominal rate if no
// window has closed yet
func (s *Sampler) CurrentRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.haveRate {
		return s.nominalRate
	}

	return s.lastRate
}

// History returns a copy of the reading history, oldest first
func (s *Sampler) History() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]int, len(s.history))
	copy(history, s.history)

	return history
}

// Reset clears the history and the open window
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = 0
	s.elapsedMs = 0
	s.history = nil
	s.lastRate = 0
	s.haveRate = false
}
