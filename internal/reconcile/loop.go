package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Run blocks, executing cycles until ctx is canceled. With a Schedule set
// the cron engine fires cycles wall-clock aligned; otherwise the loop
// sleeps Interval measured from the end of one cycle to the start of the
// next. A failed or panicking cycle is logged and the loop continues.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.settings.Schedule != "" {
		return r.runScheduled(ctx)
	}
	return r.runInterval(ctx)
}

func (r *Reconciler) runInterval(ctx context.Context) error {
	for {
		r.cycle(ctx)
		r.logger.Printf("reconcile: next check in %s", r.settings.Interval)

		timer := time.NewTimer(r.settings.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Reconciler) runScheduled(ctx context.Context) error {
	engine := r.cron
	if engine == nil {
		engine = cron.New()
	}

	var busy atomic.Bool
	_, err := engine.AddFunc(r.settings.Schedule, func() {
		if !busy.CompareAndSwap(false, true) {
			r.logger.Printf("reconcile: previous cycle still running, skipping scheduled check")
			return
		}
		defer busy.Store(false)
		r.cycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", r.settings.Schedule, err)
	}

	r.logger.Printf("reconcile: running on schedule %q", r.settings.Schedule)
	engine.Start()
	<-ctx.Done()
	<-engine.Stop().Done()
	return ctx.Err()
}

// cycle is the failure boundary: anything a cycle raises ends here.
func (r *Reconciler) cycle(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			globalCycleMetrics().failures.Inc()
			r.logger.Printf("reconcile: cycle panicked: %v", rec)
		}
	}()

	if _, err := r.RunCycle(ctx); err != nil {
		globalCycleMetrics().failures.Inc()
		r.logger.Printf("reconcile: cycle failed: %v", err)
	}
}
