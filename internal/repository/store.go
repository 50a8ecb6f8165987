package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/store"
)

// Store implements store.Store on PostgreSQL. Changes are published by the
// Listener from database notifications, not by the Store itself.
type Store struct {
	pool        *pgxpool.Pool
	taskRepo    *TaskRepository
	historyRepo *HistoryRepository
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:        pool,
		taskRepo:    NewTaskRepository(pool),
		historyRepo: NewHistoryRepository(pool),
	}
}

// InTx runs fn in a database transaction and commits when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(&pgTx{tx: tx, store: s}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return s.taskRepo.GetByID(ctx, taskID)
}

// ListTasks retrieves tasks matching q, newest first.
func (s *Store) ListTasks(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	return s.taskRepo.List(ctx, q)
}

// ListHistory retrieves a task's history, newest first.
func (s *Store) ListHistory(ctx context.Context, taskID string) ([]*domain.HistoryEntry, error) {
	return s.historyRepo.GetByTaskID(ctx, taskID)
}

// CountTasksByStatus counts tasks per status.
func (s *Store) CountTasksByStatus(ctx context.Context, q store.TaskQuery) (map[domain.TaskStatus]int, error) {
	return s.taskRepo.CountByStatus(ctx, q)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// pgTx adapts a pgx.Tx to store.Tx.
type pgTx struct {
	tx    pgx.Tx
	store *Store
}

func (t *pgTx) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return t.store.taskRepo.GetByIDForUpdate(ctx, t.tx, taskID)
}

func (t *pgTx) InsertTask(ctx context.Context, task *domain.Task) error {
	return t.store.taskRepo.Create(ctx, t.tx, task)
}

func (t *pgTx) UpdateTask(ctx context.Context, taskID string, fields domain.TaskFields) error {
	return t.store.taskRepo.UpdateFields(ctx, t.tx, taskID, fields)
}

func (t *pgTx) DeleteTask(ctx context.Context, taskID string) error {
	return t.store.taskRepo.Delete(ctx, t.tx, taskID)
}

func (t *pgTx) InsertHistory(ctx context.Context, entry *domain.HistoryEntry) error {
	return t.store.historyRepo.Create(ctx, t.tx, entry)
}

func (t *pgTx) DeleteHistory(ctx context.Context, taskID string) (int, error) {
	return t.store.historyRepo.DeleteByTaskID(ctx, t.tx, taskID)
}
