package ctl

import (
	"fmt"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/query"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const defaultCurrency = money.EUR

// formatMoney prints amount in the currency's own notation, e.g. €12.50.
func formatMoney(amount float64, currency string) string {
	if currency == "" {
		currency = defaultCurrency
	}
	// money.New always yields a currency, even for unknown codes.
	cur := money.New(0, currency).Currency()
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func listMarkdown(records []core.Expense, order string, currency string) string {
	var b strings.Builder
	b.WriteString("# Expenses\n\n")
	if order != "" {
		fmt.Fprintf(&b, "Sorted by `%s`\n\n", order)
	}
	if len(records) == 0 {
		b.WriteString("_No expenses._\n")
		return b.String()
	}

	b.WriteString("| ID | Date | Name | Category | Amount |\n")
	b.WriteString("|----|------|------|----------|-------:|\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			cell(r.ID), cell(r.Date), cell(r.Name), cell(r.Category), formatMoney(r.Amount, currency))
	}
	fmt.Fprintf(&b, "\n_%d records_\n", len(records))
	return b.String()
}

type statsView struct {
	window     core.TimeWindow
	records    int
	total      float64
	daily      []query.DayTotal
	byCategory []query.CategoryTotal
}

func statsMarkdown(v statsView, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Stats: %s\n\n", v.window)
	fmt.Fprintf(&b, "**Total:** %s across %d records\n", formatMoney(v.total, currency), v.records)
	if v.records == 0 {
		return b.String()
	}

	b.WriteString("\n## By day\n\n| Day | Amount |\n|-----|-------:|\n")
	for _, d := range v.daily {
		fmt.Fprintf(&b, "| %s | %s |\n", d.Label, formatMoney(d.Amount, currency))
	}

	b.WriteString("\n## By category\n\n| Category | Amount |\n|----------|-------:|\n")
	for _, c := range v.byCategory {
		fmt.Fprintf(&b, "| %s | %s |\n", cell(c.Category), formatMoney(c.Amount, currency))
	}
	return b.String()
}

func categoriesMarkdown() string {
	var b strings.Builder
	b.WriteString("# Categories\n\n| Name | Icon |\n|------|------|\n")
	for _, c := range core.Categories {
		fmt.Fprintf(&b, "| %s | %s |\n", c, core.IconFor(c))
	}
	return b.String()
}
