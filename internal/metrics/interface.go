package metrics

import (
	"context"
	"time"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository defines the interface for snapshot storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

// Snapshot captures one evaluation pass of the controller
type Snapshot struct {
	Timestamp    time.Time
	Rate         RateMetrics
	Tier         string
	CooldownMs   int
	Transitioned bool
}

// RateMetrics carries the throughput readings behind a snapshot
type RateMetrics struct {
	Current int
	Mean    float64
}
