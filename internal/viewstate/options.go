package viewstate

import (
	"time"

	"expensetracker/internal/log"
	"expensetracker/internal/query"
)

type (
	// Option configures a controller.
	Option func(*options)

	options struct {
		sched  Scheduler
		engine *query.Engine
		logger *log.Logger
		clock  func() time.Time
	}
)

// WithScheduler sets where state changes run. The default is Immediate, which
// Start replaces with a private Loop while the controller is subscribed.
func WithScheduler(s Scheduler) Option { return func(o *options) { o.sched = s } }

func WithEngine(e *query.Engine) Option { return func(o *options) { o.engine = e } }

func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock sets the reference time source for time windows.
func WithClock(now func() time.Time) Option { return func(o *options) { o.clock = now } }

func buildOptions(component string, opts []Option) options {
	o := options{sched: Immediate{}, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default(component)
	}
	o.logger = o.logger.WithComponent(component)
	if o.engine == nil {
		o.engine = query.NewEngine(o.logger)
	}
	return o
}
