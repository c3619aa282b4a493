// Package viewstate holds the list and stats controllers that sit between the
// expense gateway and a presentation surface.
//
// Controllers are single-writer. Every state change is posted to a Scheduler and
// runs there one at a time, including snapshots arriving from the gateway.
package viewstate

import (
	"sync"

	"expensetracker/internal/log"
)

// Scheduler runs posted work sequentially, in posting order.
type Scheduler interface {
	Post(fn func())
}

// Immediate runs work on the posting goroutine. It is only serial when a single
// goroutine posts, so a started controller trades it for a Loop.
type Immediate struct{}

func (Immediate) Post(fn func()) { fn() }

// Loop is a Scheduler backed by one goroutine and an unbounded queue.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	done   chan struct{}
	logger *log.Logger
}

// NewLoop starts a loop. Stop it with Close.
func NewLoop(logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default(log.ComponentApp)
	}
	l := &Loop{done: make(chan struct{}), logger: logger}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Post queues fn. Work posted after Close is dropped.
func (l *Loop) Post(fn func()) {
	l.post(fn)
}

func (l *Loop) post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.cond.Signal()
	return true
}

// Sync blocks until everything posted before the call has run.
func (l *Loop) Sync() {
	ch := make(chan struct{})
	if !l.post(func() { close(ch) }) {
		<-l.done
		return
	}
	<-ch
}

// Close runs the work already queued, then stops the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.cond.Signal()
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.tasks) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Scheduled task panicked", "panic", r)
		}
	}()
	fn()
}
