// Package sheets defines where owner snapshots are exported to.
package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotExporter replaces the exported copy of an owner's records.
	SnapshotExporter interface {
		ExportSnapshot(ctx context.Context, ownerID string, records []core.Expense) (ref string, err error)
	}

	// SnapshotReader returns what was last exported for an owner.
	SnapshotReader interface {
		ReadSnapshot(ctx context.Context, ownerID string) ([]core.Expense, error)
	}
)

// Header is the first row of every exported table.
var Header = []string{"Owner", "ID", "Date", "Name", "Amount", "Category"}
