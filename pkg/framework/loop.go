package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultLoopInterval is used when a Loop is created without an interval.
const DefaultLoopInterval = time.Second

// Loop executes a work cycle at a fixed interval until the
// context is canceled. The first cycle starts immediately.
type Loop struct {
	// Interval is the delay between the start of consecutive cycles.
	Interval time.Duration
	// Cycle performs a single unit of work.
	Cycle func(context.Context)
}

// NewLoop creates a Loop.
func NewLoop(interval time.Duration, cycle func(context.Context)) *Loop {
	return &Loop{Interval: interval, Cycle: cycle}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultLoopInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Cycle(ctx)
		select {
		case <-ctx.Done():
			glog.V(4).Infof("loop canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
