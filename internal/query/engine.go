// Package query implements the pure transformations behind the expense list and the
// spending chart: sorting, amount/category filtering, time windows and aggregation.
//
// Engine methods never fail. Malformed input degrades (epoch date, skipped record,
// missing bound) and is reported through the engine's logger only. Inputs are never
// mutated and every method is safe for concurrent use.
package query

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"github.com/shopspring/decimal"
)

type (
	// DayTotal is the summed amount of one calendar day.
	DayTotal struct {
		Date   core.Date `json:"-"`
		Label  string    `json:"day"`
		Amount float64   `json:"amount"`
	}

	// CategoryTotal is the summed amount of one category label.
	CategoryTotal struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}
)

// Engine carries the logger used to report degraded input.
type Engine struct {
	logger *log.Logger
}

// NewEngine returns an engine logging through logger (slog default when nil).
func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default(log.ComponentQuery)
	}
	return &Engine{logger: logger.WithComponent(log.ComponentQuery)}
}

// Sort returns a new slice ordered by order. Equal keys keep their input order.
// Dates that cannot be parsed sort as the epoch.
func (e *Engine) Sort(records []core.Expense, order core.SortOrder) []core.Expense {
	if len(records) == 0 {
		return []core.Expense{}
	}

	var compare func(a, b core.Expense) int
	switch order.Key {
	case core.SortByAmount:
		compare = func(a, b core.Expense) int { return cmp.Compare(a.Amount, b.Amount) }
	case core.SortByName:
		compare = func(a, b core.Expense) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case core.SortByDate:
		return e.sortByDate(records, order.Descending())
	default:
		e.logger.Warn("Unknown sort key, keeping input order", log.FieldSort, order.String())
		return slices.Clone(records)
	}

	sorted := slices.Clone(records)
	if order.Descending() {
		slices.SortStableFunc(sorted, func(a, b core.Expense) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(sorted, compare)
	}
	return sorted
}

// sortByDate parses every date once before ordering.
func (e *Engine) sortByDate(records []core.Expense, desc bool) []core.Expense {
	type keyed struct {
		rec core.Expense
		on  core.Date
	}
	items := make([]keyed, len(records))
	for i, r := range records {
		on, ok := core.ParseDateOrEpoch(r.Date)
		if !ok {
			e.logger.Warn("Failed to parse date, sorting as epoch",
				log.FieldExpenseID, r.ID, log.FieldDate, r.Date)
		}
		items[i] = keyed{rec: r, on: on}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		if desc {
			return b.on.Compare(a.on)
		}
		return a.on.Compare(b.on)
	})
	sorted := make([]core.Expense, len(items))
	for i, it := range items {
		sorted[i] = it.rec
	}
	return sorted
}

// FilterByAmountAndCategory keeps records whose amount lies within bounds and whose
// category is one of categories. An empty category list places no restriction.
func (e *Engine) FilterByAmountAndCategory(records []core.Expense, bounds core.AmountBounds, categories []string) []core.Expense {
	filtered := make([]core.Expense, 0, len(records))
	for _, r := range records {
		if !bounds.Admits(r.Amount) {
			continue
		}
		if len(categories) > 0 && !slices.Contains(categories, r.Category) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// ParseBound turns raw bound text into a bound. Blank or unparsable text means no bound.
func (e *Engine) ParseBound(text string) *float64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	v, err := core.ParseNumber(text)
	if err != nil {
		e.logger.Warn("Ignoring unparsable amount bound", log.FieldBound, text, log.FieldError, err)
		return nil
	}
	return &v
}

// BoundsFromText parses both raw bounds with ParseBound.
func (e *Engine) BoundsFromText(minText, maxText string) core.AmountBounds {
	return core.AmountBounds{Min: e.ParseBound(minText), Max: e.ParseBound(maxText)}
}

// FilterByTimeWindow keeps records whose day lies in window relative to the calendar day
// of reference. Records with unparsable dates only survive the All window.
func (e *Engine) FilterByTimeWindow(records []core.Expense, window core.TimeWindow, reference time.Time) []core.Expense {
	refDay := core.DateOf(reference)
	filtered := make([]core.Expense, 0, len(records))
	for _, r := range records {
		if window == core.All {
			filtered = append(filtered, r)
			continue
		}
		on, err := core.ParseDate(r.Date)
		if err != nil {
			e.logger.Warn("Date parse error, excluding from time window",
				log.FieldExpenseID, r.ID, log.FieldDate, r.Date, log.FieldWindow, string(window))
			continue
		}
		if window.Contains(on.DaysUntil(refDay)) {
			filtered = append(filtered, r)
		}
	}
	e.logger.Debug("Time filter applied",
		log.FieldWindow, string(window),
		log.FieldRecords, len(records),
		log.FieldResults, len(filtered))
	return filtered
}

// GroupByDay sums amounts per calendar day in chronological order.
// Records with unparsable dates are skipped.
func (e *Engine) GroupByDay(records []core.Expense) []DayTotal {
	sums := make(map[core.Date]decimal.Decimal)
	for _, r := range records {
		on, err := core.ParseDate(r.Date)
		if err != nil {
			e.logger.Warn("Date parse error, skipping from daily totals",
				log.FieldExpenseID, r.ID, log.FieldDate, r.Date)
			continue
		}
		amount, ok := e.amountOf(r)
		if !ok {
			continue
		}
		sums[on] = sums[on].Add(amount)
	}

	totals := make([]DayTotal, 0, len(sums))
	for on, sum := range sums {
		f, _ := sum.Float64()
		totals = append(totals, DayTotal{Date: on, Label: on.String(), Amount: f})
	}
	slices.SortFunc(totals, func(a, b DayTotal) int { return a.Date.Compare(b.Date) })
	return totals
}

// GroupByCategory sums amounts per category label, ordered by label.
// A missing category is reported as core.Uncategorized.
func (e *Engine) GroupByCategory(records []core.Expense) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		category := r.Category
		if category == "" {
			category = core.Uncategorized
		}
		amount, ok := e.amountOf(r)
		if !ok {
			continue
		}
		sums[category] = sums[category].Add(amount)
	}

	totals := make([]CategoryTotal, 0, len(sums))
	for category, sum := range sums {
		f, _ := sum.Float64()
		totals = append(totals, CategoryTotal{Category: category, Amount: f})
	}
	slices.SortFunc(totals, func(a, b CategoryTotal) int { return strings.Compare(a.Category, b.Category) })
	return totals
}

// SumAmounts adds up every amount; an empty input sums to zero.
func (e *Engine) SumAmounts(records []core.Expense) float64 {
	total := decimal.Zero
	for _, r := range records {
		if amount, ok := e.amountOf(r); ok {
			total = total.Add(amount)
		}
	}
	f, _ := total.Float64()
	return f
}

// amountOf converts a record amount for exact accumulation. Non-finite amounts are skipped.
func (e *Engine) amountOf(r core.Expense) (decimal.Decimal, bool) {
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		e.logger.Warn("Skipping non-finite amount", log.FieldExpenseID, r.ID, log.FieldAmount, r.Amount)
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(r.Amount), true
}
