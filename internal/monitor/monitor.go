package monitor

import (
	"sync"
	"time"

	"codeberg.org/avhall/tierctl/internal/logger"
)

// DefaultInterval is the reference evaluation cadence
const DefaultInterval = 2 * time.Second

// Evaluator runs one pass of the transition policy and reports whether a
// transition was committed. Satisfied by quality.Controller.
type Evaluator interface {
	Evaluate() bool
}

// Monitor drives periodic evaluation of a controller. It owns only the
// evaluation timer: Stop tears the timer down and leaves the controller
// state untouched, so a restarted monitor resumes where it left off.
type Monitor struct {
	mu         sync.Mutex
	eval       Evaluator
	interval   time.Duration
	onEvaluate func(transitioned bool)

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Monitor
type Option func(*Monitor)

// WithOnEvaluate registers a hook invoked after every evaluation pass
func WithOnEvaluate(fn func(transitioned bool)) Option {
	return func(m *Monitor) {
		m.onEvaluate = fn
	}
}

// New builds a stopped monitor
func New(eval Evaluator, interval time.Duration, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}

	m := &Monitor{
		eval:     eval,
		interval: interval,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start launches the evaluation timer. Idempotent.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.running = true

	go m.run(m.stopCh, m.doneCh)

	logger.Debug().Dur("interval", m.interval).Msg("Monitoring started")
}

// Stop tears down the evaluation timer. Idempotent. Controller state,
// including the reading history and any pending cooldown, survives.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	close(m.stopCh)
	<-m.doneCh
	m.running = false

	logger.Debug().Msg("Monitoring stopped")
}

// Running reports whether the evaluation timer is active
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

func (m *Monitor) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			transitioned := m.eval.Evaluate()
			if m.onEvaluate != nil {
				m.onEvaluate(transitioned)
			}
		}
	}
}
