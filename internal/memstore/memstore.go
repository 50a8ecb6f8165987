// Package memstore is a single-process task store. It backs anonymous local
// mode and the service and handler tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/store"
)

type taskRecord struct {
	task domain.Task
	seq  int64
}

type historyRecord struct {
	entry domain.HistoryEntry
	seq   int64
}

type state struct {
	tasks     map[string]taskRecord
	histories []historyRecord
	seq       int64
}

func (s *state) clone() *state {
	c := &state{
		tasks:     make(map[string]taskRecord, len(s.tasks)),
		histories: make([]historyRecord, len(s.histories)),
		seq:       s.seq,
	}
	for id, rec := range s.tasks {
		c.tasks[id] = rec
	}
	copy(c.histories, s.histories)
	return c
}

// Store keeps tasks and history in memory. Transactions are serialized and
// work on a copy of the state that replaces the live state on commit.
type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state *state
	pub   store.Publisher
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store publishing committed changes to pub (may be nil).
func New(pub store.Publisher, opts ...Option) *Store {
	s := &Store{
		state: &state{tasks: make(map[string]taskRecord)},
		pub:   pub,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTx runs fn against a private copy of the state and swaps it in when fn
// succeeds and ctx is still live.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tx := &memTx{store: s, state: s.state.clone()}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()

	if s.pub != nil {
		for _, change := range tx.changes {
			s.pub.Publish(change)
		}
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getTask(taskID)
}

// ListTasks returns matching tasks, newest first.
func (s *Store) ListTasks(_ context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	s.mu.RLock()
	records := make([]taskRecord, 0, len(s.state.tasks))
	for _, rec := range s.state.tasks {
		if q.Matches(&rec.task) {
			records = append(records, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]*domain.Task, len(records))
	for i := range records {
		task := records[i].task
		tasks[i] = &task
	}
	return tasks, nil
}

// ListHistory returns a task's history, newest first.
func (s *Store) ListHistory(_ context.Context, taskID string) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	var records []historyRecord
	for _, rec := range s.state.histories {
		if rec.entry.TaskID == taskID {
			records = append(records, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.entry.ChangedAt.Equal(b.entry.ChangedAt) {
			return a.entry.ChangedAt.After(b.entry.ChangedAt)
		}
		return a.seq > b.seq
	})

	entries := make([]*domain.HistoryEntry, len(records))
	for i := range records {
		entry := records[i].entry
		entries[i] = &entry
	}
	return entries, nil
}

// CountTasksByStatus counts matching tasks per status.
func (s *Store) CountTasksByStatus(_ context.Context, q store.TaskQuery) (map[domain.TaskStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.TaskStatus]int)
	for _, rec := range s.state.tasks {
		if q.Matches(&rec.task) {
			counts[rec.task.Status]++
		}
	}
	return counts, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (st *state) getTask(taskID string) (*domain.Task, error) {
	rec, ok := st.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}
	task := rec.task
	return &task, nil
}

type memTx struct {
	store   *Store
	state   *state
	changes []store.Change
}

func (tx *memTx) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	return tx.state.getTask(taskID)
}

func (tx *memTx) InsertTask(_ context.Context, task *domain.Task) error {
	task.ID = uuid.NewString()
	task.CreatedAt = tx.store.now()

	tx.state.seq++
	tx.state.tasks[task.ID] = taskRecord{task: *task, seq: tx.state.seq}
	tx.record(store.CollectionTasks, store.OpInsert, task.ID, task.OwnerID)
	return nil
}

func (tx *memTx) UpdateTask(_ context.Context, taskID string, fields domain.TaskFields) error {
	rec, ok := tx.state.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}
	rec.task = rec.task.Apply(fields)
	tx.state.tasks[taskID] = rec
	tx.record(store.CollectionTasks, store.OpUpdate, taskID, rec.task.OwnerID)
	return nil
}

func (tx *memTx) DeleteTask(_ context.Context, taskID string) error {
	rec, ok := tx.state.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}
	for _, h := range tx.state.histories {
		if h.entry.TaskID == taskID {
			return fmt.Errorf("delete task %s: history entries still reference it", taskID)
		}
	}
	delete(tx.state.tasks, taskID)
	tx.record(store.CollectionTasks, store.OpDelete, taskID, rec.task.OwnerID)
	return nil
}

func (tx *memTx) InsertHistory(_ context.Context, entry *domain.HistoryEntry) error {
	if _, ok := tx.state.tasks[entry.TaskID]; !ok {
		return fmt.Errorf("insert history: %w: %s", domain.ErrNotFound, entry.TaskID)
	}
	entry.ID = uuid.NewString()
	entry.ChangedAt = tx.store.now()

	tx.state.seq++
	tx.state.histories = append(tx.state.histories, historyRecord{entry: *entry, seq: tx.state.seq})
	tx.record(store.CollectionHistories, store.OpInsert, entry.TaskID, "")
	return nil
}

func (tx *memTx) DeleteHistory(_ context.Context, taskID string) (int, error) {
	kept := tx.state.histories[:0:0]
	removed := 0
	for _, h := range tx.state.histories {
		if h.entry.TaskID == taskID {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	tx.state.histories = kept
	if removed > 0 {
		tx.record(store.CollectionHistories, store.OpDelete, taskID, "")
	}
	return removed, nil
}

func (tx *memTx) record(collection store.Collection, op store.Op, taskID, ownerID string) {
	tx.changes = append(tx.changes, store.Change{
		Collection: collection,
		Op:         op,
		TaskID:     taskID,
		OwnerID:    ownerID,
	})
}
