// Package gateway is the boundary to the remote expense collection.
//
// A Gateway pushes a full snapshot of an owner's records to every subscription,
// first on subscribe and then after each change, and offers one-shot loads,
// deletes and creates. Implementations in this package sit on top of a Store.
package gateway

import (
	"context"
	"errors"

	"expensetracker/internal/core"
)

var (
	// ErrNotFound is returned by Delete when (owner, id) names no record.
	ErrNotFound = core.ErrNotFound
	// ErrClosed is returned by operations on a closed gateway.
	ErrClosed = errors.New("gateway closed")
)

type (
	// Gateway is the remote collection seen by the view-state controllers.
	Gateway interface {
		Subscribe(ctx context.Context, ownerID string) (*Subscription, error)
		Unsubscribe(sub *Subscription)
		LoadOnce(ctx context.Context, ownerID string) ([]core.Expense, error)
		Delete(ctx context.Context, rec core.Expense) error
		Create(ctx context.Context, ownerID string, e core.NewExpense) (string, error)
	}

	// Event carries either a full snapshot or a transport error.
	Event struct {
		Records []core.Expense
		Err     error
	}

	// Store is the persistence underneath a store-backed gateway.
	// Every method is scoped to one owner.
	Store interface {
		Insert(ctx context.Context, rec core.Expense) error
		List(ctx context.Context, ownerID string) ([]core.Expense, error)
		Delete(ctx context.Context, ownerID, id string) error
	}

	// ChangeOp names the mutation behind a Change.
	ChangeOp string

	// Change describes a mutation for out-of-process listeners.
	Change struct {
		OwnerID   string
		ExpenseID string
		Op        ChangeOp
	}

	// Notifier forwards changes to other processes.
	Notifier interface {
		NotifyChange(ctx context.Context, c Change) error
	}
)

const (
	OpCreated ChangeOp = "created"
	OpDeleted ChangeOp = "deleted"
)
