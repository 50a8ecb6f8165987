package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/memstore"
	"github.com/mtlprog/tasktrack/internal/store"
)

type changeLog struct {
	mu      sync.Mutex
	changes []store.Change
}

func (l *changeLog) Publish(c store.Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

// fixedClock returns the same instant on every call to force ordering ties.
func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func insertTask(t *testing.T, s *memstore.Store, owner, name string) *domain.Task {
	t.Helper()
	task := &domain.Task{OwnerID: owner, TaskName: name, PersonInCharge: "Alice", Status: domain.TaskStatusOngoing}
	err := s.InTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertTask(context.Background(), task)
	})
	require.NoError(t, err)
	return task
}

func TestStore_RollbackOnError(t *testing.T) {
	log := &changeLog{}
	s := memstore.New(log)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx store.Tx) error {
		task := &domain.Task{OwnerID: "u1", TaskName: "A", PersonInCharge: "Alice", Status: domain.TaskStatusOngoing}
		require.NoError(t, tx.InsertTask(ctx, task))
		return boom
	})
	require.ErrorIs(t, err, boom)

	tasks, err := s.ListTasks(ctx, store.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, log.changes, "rolled back writes must not be published")
}

func TestStore_CancelledContextRollsBack(t *testing.T) {
	s := memstore.New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.InTx(ctx, func(tx store.Tx) error {
		task := &domain.Task{TaskName: "A", PersonInCharge: "Alice", Status: domain.TaskStatusOngoing}
		require.NoError(t, tx.InsertTask(ctx, task))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	tasks, err := s.ListTasks(context.Background(), store.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStore_ListOrderingWithTies(t *testing.T) {
	s := memstore.New(nil, memstore.WithClock(fixedClock))
	ctx := context.Background()

	first := insertTask(t, s, "u1", "first")
	second := insertTask(t, s, "u1", "second")
	insertTask(t, s, "u2", "other owner")

	owner := "u1"
	tasks, err := s.ListTasks(ctx, store.TaskQuery{OwnerID: &owner})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)

	err = s.InTx(ctx, func(tx store.Tx) error {
		for _, d := range []string{"one", "two", "three"} {
			if err := tx.InsertHistory(ctx, &domain.HistoryEntry{TaskID: first.ID, Actor: "Alice", ChangeDescription: d}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	entries, err := s.ListHistory(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[0].ChangeDescription)
	assert.Equal(t, "one", entries[2].ChangeDescription)
}

func TestStore_DeleteTaskWithHistoryFails(t *testing.T) {
	s := memstore.New(nil)
	ctx := context.Background()
	task := insertTask(t, s, "u1", "A")

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertHistory(ctx, &domain.HistoryEntry{TaskID: task.ID, Actor: "Alice", ChangeDescription: domain.ChangeDescriptionCreated})
	}))

	err := s.InTx(ctx, func(tx store.Tx) error {
		return tx.DeleteTask(ctx, task.ID)
	})
	require.Error(t, err)

	_, err = s.GetTask(ctx, task.ID)
	assert.NoError(t, err)
}

func TestStore_PublishesAfterCommit(t *testing.T) {
	log := &changeLog{}
	s := memstore.New(log)

	task := insertTask(t, s, "u1", "A")

	require.Len(t, log.changes, 1)
	assert.Equal(t, store.Change{
		Collection: store.CollectionTasks,
		Op:         store.OpInsert,
		TaskID:     task.ID,
		OwnerID:    "u1",
	}, log.changes[0])
}

func TestStore_GetTaskNotFound(t *testing.T) {
	s := memstore.New(nil)

	_, err := s.GetTask(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
