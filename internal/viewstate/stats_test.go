package viewstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statsNow = time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return core.DateOf(statsNow).AddDays(-n).String()
}

func statsRecords() []core.Expense {
	return []core.Expense{
		{ID: "1", OwnerID: "u1", Name: "Coffee", Amount: 3.5, Category: "Food", Date: daysAgo(0)},
		{ID: "2", OwnerID: "u1", Name: "Lunch", Amount: 12, Category: "Food", Date: daysAgo(0)},
		{ID: "3", OwnerID: "u1", Name: "Train", Amount: 20, Category: "Transport", Date: daysAgo(1)},
		{ID: "4", OwnerID: "u1", Name: "Shirt", Amount: 40, Category: "Shopping", Date: daysAgo(3)},
		{ID: "5", OwnerID: "u1", Name: "Dentist", Amount: 90, Category: "Health", Date: daysAgo(10)},
		{ID: "6", OwnerID: "u1", Name: "Insurance", Amount: 300, Category: "Bills", Date: daysAgo(60)},
		{ID: "7", OwnerID: "u1", Name: "Mystery", Amount: 1, Category: "Other", Date: "soon"},
	}
}

type statsRecorders struct {
	filtered *recorder[[]core.Expense]
	totals   *recorder[float64]
	daily    *recorder[[]query.DayTotal]
	cats     *recorder[[]query.CategoryTotal]
	errs     *recorder[string]
}

func newStats(gw *fakeGateway) (*StatsController, statsRecorders) {
	c := NewStatsController(gw, "u1",
		WithLogger(log.Discard()),
		WithClock(func() time.Time { return statsNow }))
	r := statsRecorders{
		filtered: &recorder[[]core.Expense]{},
		totals:   &recorder[float64]{},
		daily:    &recorder[[]query.DayTotal]{},
		cats:     &recorder[[]query.CategoryTotal]{},
		errs:     &recorder[string]{},
	}
	c.Filtered().Observe(r.filtered.add)
	c.Total().Observe(r.totals.add)
	c.Daily().Observe(r.daily.add)
	c.ByCategory().Observe(r.cats.add)
	c.Errors().Observe(r.errs.add)
	return c, r
}

func TestStatsDefaultsToToday(t *testing.T) {
	c, r := newStats(&fakeGateway{})
	c.OnSnapshot(statsRecords())

	assert.Equal(t, []string{"Coffee", "Lunch"}, names(r.filtered.last()))
	assert.InDelta(t, 15.5, r.totals.last(), 1e-9)
	require.Len(t, r.daily.last(), 1)
	assert.Equal(t, daysAgo(0), r.daily.last()[0].Label)
	require.Len(t, r.cats.last(), 1)
	assert.Equal(t, "Food", r.cats.last()[0].Category)
}

func TestStatsWindowChangeRecomputesAll(t *testing.T) {
	c, r := newStats(&fakeGateway{})
	c.OnSnapshot(statsRecords())

	c.SetWindow(core.Week)
	assert.Len(t, r.filtered.last(), 4)
	assert.InDelta(t, 75.5, r.totals.last(), 1e-9)
	assert.Len(t, r.daily.last(), 3)

	c.SetWindow(core.Month)
	assert.Len(t, r.filtered.last(), 5)

	c.SetWindow(core.All)
	assert.Len(t, r.filtered.last(), 7)
	assert.Len(t, r.daily.last(), 5, "unparsable date is left out of daily totals")

	assert.Len(t, r.totals.all(), 4)
}

func TestStatsWindowBeforeSnapshotIsStored(t *testing.T) {
	c, r := newStats(&fakeGateway{})
	c.SetWindow(core.Yesterday)
	assert.Empty(t, r.totals.all())

	c.OnSnapshot(statsRecords())
	assert.Equal(t, []string{"Train"}, names(r.filtered.last()))
	assert.Len(t, r.totals.all(), 1)
}

func TestStatsPublishesWithoutDeduplication(t *testing.T) {
	c, r := newStats(&fakeGateway{})
	c.OnSnapshot(statsRecords())
	c.SetWindow(core.Today)
	c.OnSnapshot(statsRecords())

	assert.Equal(t, []float64{15.5, 15.5, 15.5}, r.totals.all())
	assert.Len(t, r.daily.all(), 3)
	assert.Len(t, r.filtered.all(), 3)
}

func TestStatsEmptySnapshot(t *testing.T) {
	c, r := newStats(&fakeGateway{})
	c.OnSnapshot(nil)

	assert.Equal(t, []float64{0}, r.totals.all())
	assert.Empty(t, r.daily.last())
	assert.Empty(t, r.filtered.last())
}

func TestStatsErrorKeepsLastOutputs(t *testing.T) {
	gw := &fakeGateway{records: statsRecords()}
	c, r := newStats(gw)
	require.NoError(t, c.Reload(context.Background()))

	gw.loadErr = errors.New("offline")
	require.Error(t, c.Reload(context.Background()))

	assert.Equal(t, []string{"offline"}, r.errs.all())
	assert.Len(t, r.totals.all(), 1)
	assert.InDelta(t, 15.5, r.totals.last(), 1e-9)
}

func TestStatsCloseDetaches(t *testing.T) {
	gw := &fakeGateway{}
	c, _ := newStats(gw)
	c.Close()
	assert.Equal(t, 1, gw.unsubs)
}

func TestStatsOnLoop(t *testing.T) {
	loop := NewLoop(log.Discard())
	defer loop.Close()

	c := NewStatsController(&fakeGateway{}, "u1",
		WithScheduler(loop),
		WithLogger(log.Discard()),
		WithClock(func() time.Time { return statsNow }))

	c.SetWindow(core.Year)
	c.OnSnapshot(statsRecords())
	loop.Sync()

	total, ok := c.Total().Get()
	require.True(t, ok)
	assert.InDelta(t, 465.5, total, 1e-9)
}
