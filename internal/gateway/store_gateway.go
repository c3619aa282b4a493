package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StoreGateway implements Gateway over a Store. Every successful mutation is
// followed by a fresh snapshot for the owner's subscriptions.
type StoreGateway struct {
	store    Store
	hub      *Hub
	snaps    *cache.LRUCache[[]core.Expense]
	notifier Notifier
	newID    func() string
	logger   *log.Logger

	// serializes load+publish per owner so subscribers see snapshots in store order
	owners ownerLocks
}

// Option configures a StoreGateway.
type Option func(*StoreGateway)

// WithSnapshotCache serves LoadOnce from c until the owner's records change.
func WithSnapshotCache(c *cache.LRUCache[[]core.Expense]) Option {
	return func(g *StoreGateway) { g.snaps = c }
}

// WithNotifier forwards every change to n after it has been applied.
func WithNotifier(n Notifier) Option {
	return func(g *StoreGateway) { g.notifier = n }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(g *StoreGateway) { g.newID = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(g *StoreGateway) { g.logger = l }
}

func NewStoreGateway(store Store, opts ...Option) *StoreGateway {
	g := &StoreGateway{
		store:  store,
		hub:    NewHub(),
		newID:  uuid.NewString,
		logger: log.Default(log.ComponentGateway),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithComponent(log.ComponentGateway)
	return g
}

// Subscribe registers a subscription and queues the owner's current snapshot on it.
// The subscription ends when ctx is cancelled or Unsubscribe is called.
func (g *StoreGateway) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, core.ErrEmptyOwner
	}

	defer g.owners.lock(ownerID)()

	sub, err := g.hub.Add(ownerID)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, sub.Unsubscribe)
	go func() {
		<-sub.Done()
		stop()
	}()

	records, err := g.load(ctx, ownerID)
	if err != nil {
		g.logger.WarnContext(ctx, "Initial snapshot failed",
			log.FieldOwnerID, ownerID, log.FieldError, err)
		sub.enqueue(Event{Err: err})
	} else {
		sub.enqueue(Event{Records: records})
	}

	g.logger.DebugContext(ctx, "Subscription added",
		log.FieldOperation, log.OpSubscribe,
		log.FieldOwnerID, ownerID,
		log.FieldRecords, len(records))
	return sub, nil
}

// Unsubscribe cancels sub. Safe to call repeatedly and with nil.
func (g *StoreGateway) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Unsubscribe()
}

// LoadOnce returns the owner's current records, from the snapshot cache when warm.
func (g *StoreGateway) LoadOnce(ctx context.Context, ownerID string) ([]core.Expense, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, core.ErrEmptyOwner
	}
	if g.snaps != nil {
		if cached, ok := g.snaps.Get(ownerID); ok {
			return slices.Clone(cached), nil
		}
	}
	return g.load(ctx, ownerID)
}

// Delete removes the record identified by (rec.OwnerID, rec.ID).
func (g *StoreGateway) Delete(ctx context.Context, rec core.Expense) error {
	if strings.TrimSpace(rec.OwnerID) == "" {
		return core.ErrEmptyOwner
	}
	if err := g.store.Delete(ctx, rec.OwnerID, rec.ID); err != nil {
		return fmt.Errorf("delete expense %s: %w", rec.ID, err)
	}

	g.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldOwnerID, rec.OwnerID,
		log.FieldExpenseID, rec.ID)
	g.changed(ctx, Change{OwnerID: rec.OwnerID, ExpenseID: rec.ID, Op: OpDeleted})
	return nil
}

// Create validates e, stores it under a generated id and returns the id.
func (g *StoreGateway) Create(ctx context.Context, ownerID string, e core.NewExpense) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", core.ErrEmptyOwner
	}
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validate expense: %w", err)
	}

	rec := e.WithID(g.newID(), ownerID)
	if err := g.store.Insert(ctx, rec); err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithOwner(ownerID).
		WithExpense(rec.ID, rec.Date, rec.Amount, rec.Category)
	g.logger.InfoContext(ctx, "Expense created", fields.ToSlice()...)
	g.changed(ctx, Change{OwnerID: ownerID, ExpenseID: rec.ID, Op: OpCreated})
	return rec.ID, nil
}

// HandleChange refreshes subscribers after a change made by another process.
// An empty owner refreshes every subscribed owner.
func (g *StoreGateway) HandleChange(ctx context.Context, c Change) error {
	if c.OwnerID != "" {
		g.invalidate(c.OwnerID)
		return g.Refresh(ctx, c.OwnerID)
	}
	return g.RefreshAll(ctx)
}

// Refresh loads the owner's records and publishes them to its subscriptions.
// A load failure is published as an error event and also returned.
func (g *StoreGateway) Refresh(ctx context.Context, ownerID string) error {
	defer g.owners.lock(ownerID)()

	if g.hub.Count(ownerID) == 0 {
		return nil
	}
	records, err := g.load(ctx, ownerID)
	if err != nil {
		g.hub.Publish(ownerID, Event{Err: err})
		return err
	}
	n := g.hub.Publish(ownerID, Event{Records: records})
	g.logger.DebugContext(ctx, "Snapshot published",
		log.FieldOwnerID, ownerID,
		log.FieldRecords, len(records),
		"subscribers", n)
	return nil
}

// RefreshAll refreshes every owner with live subscriptions, up to four owners
// at a time.
func (g *StoreGateway) RefreshAll(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, owner := range g.hub.Owners() {
		g.invalidate(owner)
		eg.Go(func() error { return g.Refresh(ctx, owner) })
	}
	return eg.Wait()
}

// Close cancels every subscription. Later Subscribe calls fail with ErrClosed.
func (g *StoreGateway) Close() error {
	g.hub.Close()
	return nil
}

func (g *StoreGateway) load(ctx context.Context, ownerID string) ([]core.Expense, error) {
	var gen uint64
	if g.snaps != nil {
		gen = g.snaps.Generation(ownerID)
	}

	start := time.Now()
	records, err := g.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load expenses for %s: %w", ownerID, err)
	}
	if records == nil {
		records = []core.Expense{}
	}
	g.logger.DebugContext(ctx, "Snapshot loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldOwnerID, ownerID,
		log.FieldRecords, len(records),
		log.FieldDuration, time.Since(start).Milliseconds())

	if g.snaps != nil {
		g.snaps.SetIfGeneration(ownerID, gen, slices.Clone(records))
	}
	return records, nil
}

func (g *StoreGateway) changed(ctx context.Context, c Change) {
	g.invalidate(c.OwnerID)
	if err := g.Refresh(ctx, c.OwnerID); err != nil {
		g.logger.WarnContext(ctx, "Snapshot refresh failed",
			log.FieldOwnerID, c.OwnerID, log.FieldError, err)
	}
	if g.notifier == nil {
		return
	}
	if err := g.notifier.NotifyChange(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
		g.logger.WarnContext(ctx, "Change notification failed",
			log.FieldOwnerID, c.OwnerID,
			log.FieldExpenseID, c.ExpenseID,
			log.FieldError, err)
	}
}

func (g *StoreGateway) invalidate(ownerID string) {
	if g.snaps != nil {
		g.snaps.Delete(ownerID)
	}
}

// ownerLocks hands out one mutex per owner and forgets it once unused.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sync.Mutex
	refs int
}

func (l *ownerLocks) lock(owner string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*ownerLock)
	}
	ol := l.locks[owner]
	if ol == nil {
		ol = &ownerLock{}
		l.locks[owner] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.Lock()
	return func() {
		ol.Unlock()
		l.mu.Lock()
		ol.refs--
		if ol.refs == 0 {
			delete(l.locks, owner)
		}
		l.mu.Unlock()
	}
}

var _ Gateway = (*StoreGateway)(nil)
