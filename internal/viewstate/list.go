package viewstate

import (
	"context"
	"errors"
	"slices"

	"expensetracker/internal/core"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
	"expensetracker/internal/observable"
	"expensetracker/internal/query"
)

// ListController derives the visible expense list from the owner's records and
// the active sort and filter.
//
// Sorting reorders the current list and so keeps any active filter. Filtering
// starts again from every record and drops the previous sort.
type ListController struct {
	gw     gateway.Gateway
	owner  string
	engine *query.Engine
	logger *log.Logger

	// owned by the scheduler
	all        []core.Expense
	derived    []core.Expense
	sort       *core.SortOrder
	minText    string
	maxText    string
	categories []string
	filtering  bool

	expenses observable.Value[[]core.Expense]
	errs     observable.Value[string]

	run runner
}

func NewListController(gw gateway.Gateway, ownerID string, opts ...Option) *ListController {
	o := buildOptions(log.ComponentListView, opts)
	return &ListController{
		gw:     gw,
		owner:  ownerID,
		run:    runner{sched: o.sched},
		engine: o.engine,
		logger: o.logger.With(log.FieldOwnerID, ownerID),
	}
}

// Expenses publishes the derived list. New observers get the latest list at once.
func (c *ListController) Expenses() *observable.Value[[]core.Expense] { return &c.expenses }

// Errors publishes one human-readable message per failed operation.
func (c *ListController) Errors() *observable.Value[string] { return &c.errs }

// OnSnapshot replaces every record and re-derives the list through the active filter.
func (c *ListController) OnSnapshot(records []core.Expense) {
	records = slices.Clone(records)
	c.run.post(func() {
		c.all = records
		c.sort = nil
		if c.filtering {
			c.derived = c.engine.FilterByAmountAndCategory(c.all, c.bounds(), c.categories)
		} else {
			c.derived = slices.Clone(c.all)
		}
		c.publish()
	})
}

// OnError publishes err and leaves the list untouched.
func (c *ListController) OnError(err error) {
	if err == nil {
		return
	}
	c.run.post(func() {
		c.logger.Warn("Gateway error", log.FieldError, err)
		c.errs.Set(err.Error())
	})
}

// ApplySort reorders the current derived list.
func (c *ListController) ApplySort(order core.SortOrder) {
	c.run.post(func() {
		c.sort = &order
		c.derived = c.engine.Sort(c.derived, order)
		c.logger.Debug("Sort applied", log.FieldOperation, log.OpSort, log.FieldSort, order.String())
		c.publish()
	})
}

// ApplyFilter stores the bounds text and categories and derives the list from
// every record. Unparsable bounds are ignored. Any previous sort is dropped.
func (c *ListController) ApplyFilter(minText, maxText string, categories []string) {
	categories = slices.Clone(categories)
	c.run.post(func() {
		c.minText, c.maxText = minText, maxText
		c.categories = categories
		c.filtering = true
		c.sort = nil
		c.derived = c.engine.FilterByAmountAndCategory(c.all, c.bounds(), c.categories)
		c.logger.Debug("Filter applied",
			log.FieldOperation, log.OpFilter,
			log.FieldRecords, len(c.all),
			log.FieldResults, len(c.derived))
		c.publish()
	})
}

// ResetFilter clears the filter and publishes every record.
func (c *ListController) ResetFilter() {
	c.run.post(func() {
		c.minText, c.maxText = "", ""
		c.categories = nil
		c.filtering = false
		c.sort = nil
		c.derived = slices.Clone(c.all)
		c.publish()
	})
}

// Delete asks the gateway to remove rec and reloads on success. On failure the
// message "Failed to delete: <reason>" is published and the error returned. A record
// that is already gone also triggers a reload so the list catches up.
func (c *ListController) Delete(ctx context.Context, rec core.Expense) error {
	if rec.OwnerID == "" {
		rec.OwnerID = c.owner
	}
	if err := c.gw.Delete(ctx, rec); err != nil {
		c.logger.WarnContext(ctx, "Delete failed",
			log.FieldOperation, log.OpDelete,
			log.FieldExpenseID, rec.ID,
			log.FieldError, err)
		msg := "Failed to delete: " + err.Error()
		c.run.post(func() { c.errs.Set(msg) })
		if errors.Is(err, gateway.ErrNotFound) {
			_ = c.Reload(ctx)
		}
		return err
	}
	return c.Reload(ctx)
}

// Reload fetches the owner's records once and feeds them through OnSnapshot.
func (c *ListController) Reload(ctx context.Context) error {
	records, err := c.gw.LoadOnce(ctx, c.owner)
	if err != nil {
		c.OnError(err)
		return err
	}
	c.OnSnapshot(records)
	return nil
}

// Start subscribes to the owner's snapshots. Events are forwarded in order until
// Close is called or ctx ends. A controller on the default scheduler switches to
// a private Loop while started; use Sync to wait for its pending changes.
func (c *ListController) Start(ctx context.Context) error {
	return c.run.start(ctx, c.gw, c.owner, c.logger, c.OnSnapshot, c.OnError)
}

// Sync blocks until every change posted so far has been applied.
func (c *ListController) Sync() { c.run.sync() }

// Close detaches from the gateway. Safe to call more than once, and Start may
// be called again afterwards.
func (c *ListController) Close() { c.run.stop(c.gw) }

func (c *ListController) bounds() core.AmountBounds {
	return c.engine.BoundsFromText(c.minText, c.maxText)
}

func (c *ListController) publish() {
	c.expenses.Set(slices.Clone(c.derived))
}
