package projection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/notify"
	"github.com/mtlprog/tasktrack/internal/store"
)

// HistorySnapshot is one pushed state of a task's history timeline. When
// Err is set, Entries holds the last timeline read successfully.
type HistorySnapshot struct {
	TaskID  string
	Entries []*domain.HistoryEntry
	Err     error
}

// History follows the timeline of at most one selected task.
//
// The observer must not call back into the History it observes.
type History struct {
	ctx      context.Context
	st       store.Store
	hub      *notify.Hub
	observer func(HistorySnapshot)

	mu       sync.Mutex
	selected string
	// gen changes on every Select/Clear; refreshes from an older
	// subscription are ignored.
	gen  uint64
	last []*domain.HistoryEntry
	sub  *notify.Subscription
	stop func() bool
}

// NewHistory creates a History with nothing selected. It clears itself when
// ctx is done.
func NewHistory(ctx context.Context, st store.Store, hub *notify.Hub, observer func(HistorySnapshot)) *History {
	h := &History{
		ctx:      ctx,
		st:       st,
		hub:      hub,
		observer: observer,
	}
	h.stop = context.AfterFunc(ctx, h.Clear)
	return h
}

// Select tears down the current subscription, then follows taskID and
// pushes its timeline. An empty taskID is the same as Clear.
func (h *History) Select(taskID string) {
	h.mu.Lock()
	h.teardown()
	if taskID == "" || h.ctx.Err() != nil {
		h.mu.Unlock()
		return
	}

	h.selected = taskID
	gen := h.gen
	h.sub = h.hub.Subscribe(func(change store.Change) bool {
		return change.Collection == store.CollectionHistories && change.TaskID == taskID
	}, func(store.Change) { h.refresh(gen) })
	h.mu.Unlock()

	h.refresh(gen)
}

// Clear stops following the selected task.
func (h *History) Clear() {
	h.mu.Lock()
	h.teardown()
	h.mu.Unlock()
}

// Selected returns the followed task id, or "" when nothing is selected.
func (h *History) Selected() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

// Close clears the selection and detaches from the context.
func (h *History) Close() {
	h.Clear()
	h.stop()
}

// teardown must be called with mu held.
func (h *History) teardown() {
	if h.sub != nil {
		h.sub.Unsubscribe()
		h.sub = nil
	}
	h.selected = ""
	h.last = nil
	h.gen++
}

func (h *History) refresh(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.gen {
		return
	}
	taskID := h.selected

	entries, err := h.st.ListHistory(h.ctx, taskID)
	if err != nil {
		slog.Warn("history refresh failed", "task_id", taskID, "error", err)
		last := h.last
		if last == nil {
			last = []*domain.HistoryEntry{}
		}
		h.observer(HistorySnapshot{TaskID: taskID, Entries: last, Err: err})
		return
	}

	h.last = entries
	h.observer(HistorySnapshot{TaskID: taskID, Entries: entries})
}
