// Package memory is a snapshot exporter that keeps exports in process.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	byOwner map[string][]core.Expense
	exports int
}

func New() *Exporter {
	return &Exporter{byOwner: make(map[string][]core.Expense)}
}

// ExportSnapshot replaces the stored copy for ownerID.
func (e *Exporter) ExportSnapshot(_ context.Context, ownerID string, records []core.Expense) (string, error) {
	if ownerID == "" {
		return "", core.ErrEmptyOwner
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byOwner[ownerID] = slices.Clone(records)
	e.exports++
	return fmt.Sprintf("mem:%s:%d", ownerID, e.exports), nil
}

// ReadSnapshot returns a copy of the last export for ownerID.
func (e *Exporter) ReadSnapshot(_ context.Context, ownerID string) ([]core.Expense, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	recs, ok := e.byOwner[ownerID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return slices.Clone(recs), nil
}

// Exports returns how many exports have been made.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}

var (
	_ sheets.SnapshotExporter = (*Exporter)(nil)
	_ sheets.SnapshotReader   = (*Exporter)(nil)
)
