// Package projection keeps live read models of the task store and pushes
// snapshots to an observer whenever the underlying data changes.
package projection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/notify"
	"github.com/mtlprog/tasktrack/internal/store"
)

// TaskListSnapshot is one pushed state of a task list. When Err is set,
// Tasks holds the last list that was read successfully.
type TaskListSnapshot struct {
	Tasks []*domain.Task
	Err   error
}

// TaskList is a live, newest-first list of tasks matching a query.
type TaskList struct {
	ctx      context.Context
	st       store.Store
	query    store.TaskQuery
	observer func(TaskListSnapshot)

	mu     sync.Mutex
	last   []*domain.Task
	closed bool
	sub    *notify.Subscription
	stop   func() bool
}

// WatchTasks pushes the current list to observer before returning and again
// after every task change inside q. Observer calls are serialized. The
// projection closes when ctx is done.
func WatchTasks(
	ctx context.Context,
	st store.Store,
	hub *notify.Hub,
	q store.TaskQuery,
	observer func(TaskListSnapshot),
) *TaskList {
	p := &TaskList{
		ctx:      ctx,
		st:       st,
		query:    q,
		observer: observer,
		last:     []*domain.Task{},
	}

	p.sub = hub.Subscribe(p.accepts, func(store.Change) { p.refresh() })
	p.stop = context.AfterFunc(ctx, p.Close)
	p.refresh()

	return p
}

func (p *TaskList) accepts(change store.Change) bool {
	if change.Collection != store.CollectionTasks {
		return false
	}
	return p.query.OwnerID == nil || change.OwnerID == *p.query.OwnerID
}

func (p *TaskList) refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	tasks, err := p.st.ListTasks(p.ctx, p.query)
	if err != nil {
		slog.Warn("task list refresh failed", "error", err)
		p.observer(TaskListSnapshot{Tasks: p.last, Err: err})
		return
	}

	p.last = tasks
	p.observer(TaskListSnapshot{Tasks: tasks})
}

// Close stops the projection. No snapshot is pushed once Close returns.
// It must not be called from inside the observer.
func (p *TaskList) Close() {
	p.sub.Unsubscribe()
	p.stop()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
