package viewstate

import (
	"context"
	"slices"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
	"expensetracker/internal/observable"
	"expensetracker/internal/query"
)

// StatsController recomputes the spending summary of one time window whenever
// the records or the window change. Every change publishes every output, even
// when the values are unchanged.
type StatsController struct {
	gw     gateway.Gateway
	owner  string
	engine *query.Engine
	clock  func() time.Time
	logger *log.Logger

	// owned by the scheduler
	all    []core.Expense
	loaded bool
	window core.TimeWindow

	filtered   observable.Value[[]core.Expense]
	total      observable.Value[float64]
	daily      observable.Value[[]query.DayTotal]
	byCategory observable.Value[[]query.CategoryTotal]
	errs       observable.Value[string]

	run runner
}

func NewStatsController(gw gateway.Gateway, ownerID string, opts ...Option) *StatsController {
	o := buildOptions(log.ComponentStatsView, opts)
	return &StatsController{
		gw:     gw,
		owner:  ownerID,
		run:    runner{sched: o.sched},
		engine: o.engine,
		clock:  o.clock,
		logger: o.logger.With(log.FieldOwnerID, ownerID),
		window: core.Today,
	}
}

func (c *StatsController) Filtered() *observable.Value[[]core.Expense] { return &c.filtered }
func (c *StatsController) Total() *observable.Value[float64] { return &c.total }
func (c *StatsController) Daily() *observable.Value[[]query.DayTotal] { return &c.daily }
func (c *StatsController) ByCategory() *observable.Value[[]query.CategoryTotal] { return &c.byCategory }
func (c *StatsController) Errors() *observable.Value[string] { return &c.errs }

// OnSnapshot replaces every record and recomputes with the current window.
func (c *StatsController) OnSnapshot(records []core.Expense) {
	records = slices.Clone(records)
	c.run.post(func() {
		c.all = records
		c.loaded = true
		c.recompute()
	})
}

// OnError publishes err. The last computed outputs stay as they are.
func (c *StatsController) OnError(err error) {
	if err == nil {
		return
	}
	c.run.post(func() {
		c.logger.Warn("Gateway error", log.FieldError, err)
		c.errs.Set(err.Error())
	})
}

// SetWindow changes the active window. Before the first snapshot the window is
// only stored.
func (c *StatsController) SetWindow(w core.TimeWindow) {
	c.run.post(func() {
		c.window = w
		if c.loaded {
			c.recompute()
		}
	})
}

// Reload fetches the owner's records once and feeds them through OnSnapshot.
func (c *StatsController) Reload(ctx context.Context) error {
	records, err := c.gw.LoadOnce(ctx, c.owner)
	if err != nil {
		c.OnError(err)
		return err
	}
	c.OnSnapshot(records)
	return nil
}

// Start subscribes to the owner's snapshots until Close is called or ctx ends.
func (c *StatsController) Start(ctx context.Context) error {
	return c.run.start(ctx, c.gw, c.owner, c.logger, c.OnSnapshot, c.OnError)
}

// Sync blocks until every change posted so far has been applied.
func (c *StatsController) Sync() { c.run.sync() }

// Close detaches from the gateway. Safe to call more than once.
func (c *StatsController) Close() { c.run.stop(c.gw) }

func (c *StatsController) recompute() {
	filtered := c.engine.FilterByTimeWindow(c.all, c.window, c.clock())
	c.filtered.Set(filtered)
	c.total.Set(c.engine.SumAmounts(filtered))
	c.daily.Set(c.engine.GroupByDay(filtered))
	c.byCategory.Set(c.engine.GroupByCategory(filtered))
}
