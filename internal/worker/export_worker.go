// Package worker keeps the spreadsheet export in step with the expense store.
package worker

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/query"
	"expensetracker/internal/sheets"
)

type (
	// Source reads an owner's current records.
	Source interface {
		List(ctx context.Context, ownerID string) ([]core.Expense, error)
	}

	// OwnerLister enumerates owners for full reconciliation.
	OwnerLister interface {
		Owners(ctx context.Context) ([]string, error)
	}
)

// ExportWorker re-exports an owner's snapshot whenever a change is announced.
type ExportWorker struct {
	source   Source
	owners   OwnerLister
	exporter sheets.SnapshotExporter
	engine   *query.Engine
	logger   *log.Logger
}

func NewExportWorker(source Source, owners OwnerLister, exporter sheets.SnapshotExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &ExportWorker{
		source:   source,
		owners:   owners,
		exporter: exporter,
		engine:   query.NewEngine(logger),
		logger:   logger,
	}
}

// HandleChangeMessage exports the owner named by msg. It satisfies amqp.Handler.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		log.FieldOwnerID, msg.OwnerID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldOperation, msg.Op)

	if _, err := w.ExportOwner(ctx, msg.OwnerID); err != nil {
		return fmt.Errorf("export owner %s: %w", msg.OwnerID, err)
	}
	return nil
}

// ExportOwner exports ownerID's records in chronological order and returns the
// exporter's reference.
func (w *ExportWorker) ExportOwner(ctx context.Context, ownerID string) (string, error) {
	records, err := w.source.List(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("list expenses: %w", err)
	}
	records = w.engine.Sort(records, core.SortOrder{Key: core.SortByDate, Direction: core.Ascending})

	ref, err := w.exporter.ExportSnapshot(ctx, ownerID, records)
	if err != nil {
		return "", fmt.Errorf("export snapshot: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully exported snapshot",
		log.FieldOwnerID, ownerID,
		log.FieldRecords, len(records),
		"sheets_ref", ref)
	return ref, nil
}

// ExportAll re-exports every known owner. Failures are logged and counted;
// the first one is returned after all owners were attempted.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	if w.owners == nil {
		return nil
	}
	owners, err := w.owners.Owners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	var firstErr error
	exported := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.ExportOwner(ctx, owner); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export owner",
				log.FieldOwnerID, owner,
				log.FieldError, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Full export completed",
		"total", len(owners),
		"exported", exported,
		"errors", len(owners)-exported)
	return firstErr
}

// RunPeriodic calls ExportAll every interval until ctx ends. It covers
// notifications lost while the worker was down.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ExportAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "Periodic export incomplete", log.FieldError, err)
			}
		}
	}
}
