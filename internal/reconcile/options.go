package reconcile

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type options struct {
	Logger *log.Logger
	Clock  func() time.Time
	Cron   *cron.Cron
}

// Option applies configuration to the reconciler.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), Clock: time.Now}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithClock replaces the wall clock; tests pin it to a fixed time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.Clock = now
	}
}

// WithCron supplies a preconfigured cron engine for schedule mode.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}
