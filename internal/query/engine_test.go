package query

import (
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expense(id, name string, amount float64, category, date string) core.Expense {
	return core.Expense{
		ID:       id,
		OwnerID:  "testUser123",
		Name:     name,
		Amount:   amount,
		Category: category,
		Date:     date,
	}
}

func sample() []core.Expense {
	return []core.Expense{
		expense("1", "Groceries", 150.0, "Food", "15/11/2024"),
		expense("2", "Bus ticket", 5.0, "Transport", "20/11/2024"),
		expense("3", "Cinema", 30.0, "Entertainment", "18/11/2024"),
		expense("4", "Pharmacy", 25.0, "Health", "16/11/2024"),
		expense("5", "Restaurant", 80.0, "Food", "22/11/2024"),
	}
}

func names(records []core.Expense) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func newEngine() *Engine {
	return NewEngine(log.Discard())
}

func TestSortByAmount(t *testing.T) {
	e := newEngine()

	asc := e.Sort(sample(), core.SortOrder{Key: core.SortByAmount, Direction: core.Ascending})
	assert.Equal(t, []string{"Bus ticket", "Pharmacy", "Cinema", "Restaurant", "Groceries"}, names(asc))

	desc := e.Sort(sample(), core.SortOrder{Key: core.SortByAmount, Direction: core.Descending})
	assert.Equal(t, []string{"Groceries", "Restaurant", "Cinema", "Pharmacy", "Bus ticket"}, names(desc))
}

func TestSortByDateDescending(t *testing.T) {
	sorted := newEngine().Sort(sample(), core.SortOrder{Key: core.SortByDate, Direction: core.Descending})
	assert.Equal(t, []string{"Restaurant", "Bus ticket", "Cinema", "Pharmacy", "Groceries"}, names(sorted))
}

func TestSortByDateIsChronologicalNotLexical(t *testing.T) {
	records := []core.Expense{
		expense("a", "tenth", 1, "Food", "10/1/2025"),
		expense("b", "ninth", 1, "Food", "9/1/2025"),
		expense("c", "feb", 1, "Food", "2/2/2025"),
	}
	sorted := newEngine().Sort(records, core.SortOrder{Key: core.SortByDate, Direction: core.Ascending})
	assert.Equal(t, []string{"ninth", "tenth", "feb"}, names(sorted))
}

func TestSortByNameIgnoresCase(t *testing.T) {
	records := []core.Expense{
		expense("1", "banana", 1, "Food", "1/1/2025"),
		expense("2", "Apple", 1, "Food", "1/1/2025"),
		expense("3", "cherry", 1, "Food", "1/1/2025"),
	}
	e := newEngine()
	assert.Equal(t, []string{"Apple", "banana", "cherry"},
		names(e.Sort(records, core.SortOrder{Key: core.SortByName, Direction: core.Ascending})))
	assert.Equal(t, []string{"cherry", "banana", "Apple"},
		names(e.Sort(records, core.SortOrder{Key: core.SortByName, Direction: core.Descending})))
}

func TestSortIsStable(t *testing.T) {
	records := []core.Expense{
		expense("1", "first", 10, "Food", "1/1/2025"),
		expense("2", "second", 5, "Food", "1/1/2025"),
		expense("3", "third", 10, "Food", "1/1/2025"),
		expense("4", "fourth", 5, "Food", "1/1/2025"),
		expense("5", "fifth", 10, "Food", "1/1/2025"),
	}
	e := newEngine()

	asc := e.Sort(records, core.SortOrder{Key: core.SortByAmount, Direction: core.Ascending})
	assert.Equal(t, []string{"second", "fourth", "first", "third", "fifth"}, names(asc))

	desc := e.Sort(records, core.SortOrder{Key: core.SortByAmount, Direction: core.Descending})
	assert.Equal(t, []string{"first", "third", "fifth", "second", "fourth"}, names(desc))

	byDate := e.Sort(records, core.SortOrder{Key: core.SortByDate, Direction: core.Ascending})
	assert.Equal(t, names(records), names(byDate))
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := sample()
	before := names(in)
	_ = newEngine().Sort(in, core.SortOrder{Key: core.SortByAmount, Direction: core.Descending})
	assert.Equal(t, before, names(in))
}

func TestSortEmpty(t *testing.T) {
	sorted := newEngine().Sort(nil, core.SortOrder{Key: core.SortByAmount, Direction: core.Ascending})
	assert.NotNil(t, sorted)
	assert.Empty(t, sorted)
}

func TestSortMalformedDateGoesFirstAscendingLastDescending(t *testing.T) {
	records := append(sample(), expense("6", "Broken", 1, "Other", "not-a-date"))
	e := newEngine()

	asc := e.Sort(records, core.SortOrder{Key: core.SortByDate, Direction: core.Ascending})
	assert.Equal(t, "Broken", asc[0].Name)

	desc := e.Sort(records, core.SortOrder{Key: core.SortByDate, Direction: core.Descending})
	assert.Equal(t, "Broken", desc[len(desc)-1].Name)
}

func TestFilterScenarioAmountAndCategory(t *testing.T) {
	records := []core.Expense{
		expense("1", "Groceries", 150, "Food", "15/11/2024"),
		expense("2", "Bus", 5, "Transport", "20/11/2024"),
		expense("3", "Cinema", 30, "Entertainment", "18/11/2024"),
		expense("4", "Restaurant", 80, "Food", "22/11/2024"),
	}
	e := newEngine()

	filtered := e.FilterByAmountAndCategory(records, e.BoundsFromText("50", "200"), []string{"Food"})
	require.Len(t, filtered, 2)
	assert.Equal(t, []string{"Groceries", "Restaurant"}, names(filtered))
}

func TestFilterByMinAmountOnly(t *testing.T) {
	e := newEngine()
	filtered := e.FilterByAmountAndCategory(sample(), e.BoundsFromText("50", ""), nil)
	require.Len(t, filtered, 2)
	for _, r := range filtered {
		assert.GreaterOrEqual(t, r.Amount, 50.0)
	}
}

func TestFilterBoundsAreInclusive(t *testing.T) {
	e := newEngine()
	filtered := e.FilterByAmountAndCategory(sample(), e.BoundsFromText("25", "80"), nil)
	assert.Equal(t, []string{"Cinema", "Pharmacy", "Restaurant"}, names(filtered))
}

func TestFilterEmptyCategorySetMeansNoRestriction(t *testing.T) {
	e := newEngine()
	bounds := e.BoundsFromText("10", "")
	withNil := e.FilterByAmountAndCategory(sample(), bounds, nil)
	withEmpty := e.FilterByAmountAndCategory(sample(), bounds, []string{})
	assert.Len(t, withNil, 4)
	assert.Equal(t, withNil, withEmpty)
}

func TestFilterIsIdempotent(t *testing.T) {
	e := newEngine()
	cases := []struct {
		min, max   string
		categories []string
	}{
		{"", "", nil},
		{"20", "100", nil},
		{"", "", []string{"Food", "Health"}},
		{"0", "5", []string{"Transport"}},
	}
	for _, tc := range cases {
		bounds := e.BoundsFromText(tc.min, tc.max)
		once := e.FilterByAmountAndCategory(sample(), bounds, tc.categories)
		twice := e.FilterByAmountAndCategory(once, bounds, tc.categories)
		assert.Equal(t, once, twice)
	}
}

func TestUnparsableBoundMeansNoBound(t *testing.T) {
	e := newEngine()
	assert.Nil(t, e.ParseBound("abc"))
	assert.Nil(t, e.ParseBound("   "))
	if v := e.ParseBound("12,5"); assert.NotNil(t, v) {
		assert.Equal(t, 12.5, *v)
	}

	all := e.FilterByAmountAndCategory(sample(), e.BoundsFromText("abc", "xyz"), nil)
	assert.Len(t, all, len(sample()))
}

func TestSignedAndExponentBoundsStillLimit(t *testing.T) {
	e := newEngine()
	records := []core.Expense{
		expense("1", "Bus", 5, "Transport", "20/11/2024"),
		expense("2", "Lunch", 10, "Food", "20/11/2024"),
	}
	cases := []struct {
		name     string
		min, max string
		want     []string
	}{
		{"negative max admits nothing", "", "-1", []string{}},
		{"exponent max", "", "1e1", []string{"Bus", "Lunch"}},
		{"exponent max below ten", "", "9e0", []string{"Bus"}},
		{"negative min admits all", "-1", "", []string{"Bus", "Lunch"}},
		{"signed min", "+6", "", []string{"Lunch"}},
		{"comma exponent", "", "0,6e1", []string{"Bus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bounds := e.BoundsFromText(tc.min, tc.max)
			assert.Equal(t, tc.want, names(e.FilterByAmountAndCategory(records, bounds, nil)))
		})
	}
	if v := e.ParseBound("-1"); assert.NotNil(t, v) {
		assert.Equal(t, -1.0, *v)
	}
}

func TestFilterByTimeWindowToday(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.Local)
	day := func(offset int) string { return core.DateOf(now).AddDays(offset).String() }

	records := []core.Expense{
		expense("1", "Coffee", 4.5, "Food", day(0)),
		expense("2", "Lunch", 20, "Food", day(0)),
		expense("3", "Bus", 3, "Transport", day(-1)),
		expense("4", "Shoes", 90, "Shopping", day(-3)),
		expense("5", "Doctor", 120, "Health", day(-10)),
		expense("6", "Rent", 900, "Bills", day(-60)),
	}
	e := newEngine()

	today := e.FilterByTimeWindow(records, core.Today, now)
	assert.Equal(t, []string{"Coffee", "Lunch"}, names(today))
	assert.InDelta(t, 24.5, e.SumAmounts(today), 1e-9)

	assert.Equal(t, []string{"Bus"}, names(e.FilterByTimeWindow(records, core.Yesterday, now)))
	assert.Len(t, e.FilterByTimeWindow(records, core.Week, now), 4)
	assert.Len(t, e.FilterByTimeWindow(records, core.Month, now), 5)
	assert.Len(t, e.FilterByTimeWindow(records, core.Year, now), 6)
	assert.Len(t, e.FilterByTimeWindow(records, core.All, now), 6)
}

func TestFilterByTimeWindowBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 1, 0, time.UTC)
	ref := core.DateOf(now)
	at := func(offset int) []core.Expense {
		return []core.Expense{expense("x", "x", 1, "Food", ref.AddDays(offset).String())}
	}
	e := newEngine()

	cases := []struct {
		window core.TimeWindow
		offset int
		want   int
	}{
		{core.Week, -7, 1},
		{core.Week, -8, 0},
		{core.Month, -30, 1},
		{core.Month, -31, 0},
		{core.Year, -365, 1},
		{core.Year, -366, 0},
		{core.Today, 1, 0},
		{core.Week, 1, 0},
		{core.Month, 2, 0},
		{core.Year, 3, 0},
		{core.All, 5, 1},
	}
	for _, tc := range cases {
		got := e.FilterByTimeWindow(at(tc.offset), tc.window, now)
		assert.Len(t, got, tc.want, "window=%s offset=%d", tc.window, tc.offset)
	}
}

func TestTimeWindowsAreNested(t *testing.T) {
	now := time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC)
	ref := core.DateOf(now)
	var records []core.Expense
	for offset := -400; offset <= 3; offset += 3 {
		records = append(records, expense("x", "x", 1, "Food", ref.AddDays(offset).String()))
	}
	e := newEngine()

	today := len(e.FilterByTimeWindow(records, core.Today, now))
	week := len(e.FilterByTimeWindow(records, core.Week, now))
	month := len(e.FilterByTimeWindow(records, core.Month, now))
	year := len(e.FilterByTimeWindow(records, core.Year, now))
	all := len(e.FilterByTimeWindow(records, core.All, now))

	assert.GreaterOrEqual(t, week, today)
	assert.GreaterOrEqual(t, month, week)
	assert.GreaterOrEqual(t, year, month)
	assert.GreaterOrEqual(t, all, year)
}

func TestTimeWindowAcrossDaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// the night of 29-30 March 2025 loses an hour in Warsaw
	now := time.Date(2025, 3, 31, 0, 15, 0, 0, loc)
	records := []core.Expense{
		expense("1", "saturday", 1, "Food", "29/3/2025"),
		expense("2", "sunday", 1, "Food", "30/3/2025"),
	}
	e := newEngine()
	assert.Equal(t, []string{"sunday"}, names(e.FilterByTimeWindow(records, core.Yesterday, now)))
}

func TestMalformedDateScenario(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	records := []core.Expense{
		expense("1", "Good", 10, "Food", "15/6/2025"),
		expense("2", "Broken", 10, "Food", "31/31/2025"),
	}
	e := newEngine()

	for _, w := range []core.TimeWindow{core.Today, core.Yesterday, core.Week, core.Month, core.Year} {
		for _, r := range e.FilterByTimeWindow(records, w, now) {
			assert.NotEqual(t, "Broken", r.Name, "window %s", w)
		}
	}
	assert.Len(t, e.FilterByTimeWindow(records, core.All, now), 2)

	asc := e.Sort(records, core.SortOrder{Key: core.SortByDate, Direction: core.Ascending})
	assert.Equal(t, "Broken", asc[0].Name)
}

func TestGroupByDay(t *testing.T) {
	records := []core.Expense{
		expense("1", "a", 10, "Food", "10/1/2025"),
		expense("2", "b", 5, "Food", "9/1/2025"),
		expense("3", "c", 2.5, "Food", "10/01/2025"),
		expense("4", "d", 1, "Food", "1/12/2024"),
		expense("5", "e", 100, "Food", "garbage"),
	}
	totals := newEngine().GroupByDay(records)

	require.Len(t, totals, 3)
	assert.Equal(t, "1/12/2024", totals[0].Label)
	assert.Equal(t, "9/1/2025", totals[1].Label)
	assert.Equal(t, "10/1/2025", totals[2].Label)
	assert.InDelta(t, 12.5, totals[2].Amount, 1e-9)
}

func TestGroupByDaySumsMatchTotal(t *testing.T) {
	e := newEngine()
	var sum float64
	for _, d := range e.GroupByDay(sample()) {
		sum += d.Amount
	}
	assert.InDelta(t, e.SumAmounts(sample()), sum, 1e-9)
}

func TestGroupByCategory(t *testing.T) {
	records := append(sample(),
		expense("6", "Mystery", 7, "", "1/1/2025"),
		expense("7", "Snack", 3, "Food", "1/1/2025"),
	)
	totals := newEngine().GroupByCategory(records)

	got := map[string]float64{}
	var order []string
	for _, c := range totals {
		got[c.Category] = c.Amount
		order = append(order, c.Category)
	}
	assert.Equal(t, []string{"Entertainment", "Food", "Health", "Transport", "Uncategorized"}, order)
	assert.InDelta(t, 233.0, got["Food"], 1e-9)
	assert.InDelta(t, 7.0, got[core.Uncategorized], 1e-9)
}

func TestSumAmounts(t *testing.T) {
	e := newEngine()
	assert.Equal(t, 0.0, e.SumAmounts(nil))
	assert.InDelta(t, 290.0, e.SumAmounts(sample()), 1e-9)

	tenths := []core.Expense{expense("1", "a", 0.1, "Food", "1/1/2025"), expense("2", "b", 0.2, "Food", "1/1/2025")}
	assert.Equal(t, 0.3, e.SumAmounts(tenths))
}

func TestSumIsLinear(t *testing.T) {
	e := newEngine()
	a := sample()[:2]
	b := sample()[2:]
	assert.InDelta(t, e.SumAmounts(a)+e.SumAmounts(b), e.SumAmounts(append(append([]core.Expense{}, a...), b...)), 1e-9)
}
