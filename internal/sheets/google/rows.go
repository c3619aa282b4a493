package google

import (
	"slices"
	"strconv"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

const (
	colOwner = iota
	colID
	colDate
	colName
	colAmount
	colCategory
)

// mergeRows builds the full table for an export: the header, the rows of
// every other owner in their existing order, then records for ownerID.
func mergeRows(existing [][]string, ownerID string, records []core.Expense) [][]string {
	out := [][]string{slices.Clone(sheets.Header)}
	for i, row := range existing {
		if i == 0 && isHeader(row) {
			continue
		}
		if len(row) == 0 || safeGet(row, colOwner) == "" || safeGet(row, colOwner) == ownerID {
			continue
		}
		out = append(out, row)
	}
	for _, r := range records {
		out = append(out, toRow(ownerID, r))
	}
	return out
}

func toRow(ownerID string, r core.Expense) []string {
	return []string{
		ownerID,
		r.ID,
		r.Date,
		r.Name,
		strconv.FormatFloat(r.Amount, 'f', 2, 64),
		r.Category,
	}
}

// parseRows returns the records of ownerID found in table. Rows with an
// unreadable amount are skipped.
func parseRows(table [][]string, ownerID string) []core.Expense {
	out := []core.Expense{}
	for i, row := range table {
		if i == 0 && isHeader(row) {
			continue
		}
		if safeGet(row, colOwner) != ownerID {
			continue
		}
		amount, ok := parseAmount(safeGet(row, colAmount))
		if !ok {
			continue
		}
		cat := safeGet(row, colCategory)
		out = append(out, core.Expense{
			ID:           safeGet(row, colID),
			OwnerID:      ownerID,
			Date:         safeGet(row, colDate),
			Name:         safeGet(row, colName),
			Amount:       amount,
			Category:     cat,
			CategoryIcon: core.IconFor(core.Category(cat)),
		})
	}
	return out
}

func isHeader(row []string) bool {
	return strings.EqualFold(safeGet(row, colOwner), sheets.Header[colOwner])
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return strings.TrimSpace(arr[idx])
	}
	return ""
}

// parseAmount accepts "12.50", "12,50" and a leading euro sign.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
