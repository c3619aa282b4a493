package viewstate

import (
	"context"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
)

// runner holds a controller's scheduler and its live subscription.
//
// A subscription delivers from its own goroutine, so a controller configured
// with Immediate gets a private Loop for as long as it is started. start and
// stop must be called from the goroutine that drives the controller.
type runner struct {
	sched Scheduler

	mu   sync.Mutex
	sub  *gateway.Subscription
	own  *Loop
	done chan struct{}
}

func (r *runner) post(fn func()) { r.sched.Post(fn) }

// sync waits for work already posted when the scheduler is a Loop.
func (r *runner) sync() {
	if l, ok := r.sched.(*Loop); ok {
		l.Sync()
	}
}

func (r *runner) start(ctx context.Context, gw gateway.Gateway, owner string, logger *log.Logger,
	onSnapshot func([]core.Expense), onError func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}
	sub, err := gw.Subscribe(ctx, owner)
	if err != nil {
		onError(err)
		return err
	}
	if _, ok := r.sched.(Immediate); ok {
		r.own = NewLoop(logger)
		r.sched = r.own
	}
	r.sub = sub
	done := make(chan struct{})
	r.done = done
	go func() {
		defer close(done)
		forward(sub, onSnapshot, onError)
	}()
	return nil
}

// stop cancels the subscription, waits for its last delivery and releases the
// private loop. A later start subscribes again.
func (r *runner) stop(gw gateway.Gateway) {
	r.mu.Lock()
	sub, done, own := r.sub, r.done, r.own
	r.sub, r.done, r.own = nil, nil, nil
	r.mu.Unlock()

	gw.Unsubscribe(sub)
	if done != nil {
		<-done
	}
	if own != nil {
		own.Close()
		r.sched = Immediate{}
	}
}

// forward delivers subscription events in order until the channel closes.
func forward(sub *gateway.Subscription, onSnapshot func([]core.Expense), onError func(error)) {
	for ev := range sub.Events() {
		if ev.Err != nil {
			onError(ev.Err)
			continue
		}
		onSnapshot(ev.Records)
	}
}
