// Package store defines the persistence boundary used by the task service
// and the read projections.
package store

import (
	"context"

	"github.com/mtlprog/tasktrack/internal/domain"
)

// Collection names a stored document set.
type Collection string

const (
	CollectionTasks     Collection = "tasks"
	CollectionHistories Collection = "task_histories"
)

// Op is the kind of write that produced a Change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed row write. OwnerID is only set for tasks.
type Change struct {
	Collection Collection `json:"collection"`
	Op         Op         `json:"op"`
	TaskID     string     `json:"task_id"`
	OwnerID    string     `json:"owner_id"`
}

// Publisher receives changes after their transaction commits.
type Publisher interface {
	Publish(change Change)
}

// TaskQuery selects tasks for listing. A nil OwnerID lists every task.
type TaskQuery struct {
	OwnerID  *string
	Statuses []domain.TaskStatus
}

// Matches reports whether a task falls inside the query.
func (q TaskQuery) Matches(task *domain.Task) bool {
	if q.OwnerID != nil && task.OwnerID != *q.OwnerID {
		return false
	}
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if task.Status == s {
			return true
		}
	}
	return false
}

// Tx is the set of writes available inside one atomic unit.
// Either every write made through a Tx commits or none does.
type Tx interface {
	// GetTask returns domain.ErrNotFound when the id does not resolve.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	// InsertTask assigns ID and CreatedAt on the passed task.
	InsertTask(ctx context.Context, task *domain.Task) error
	UpdateTask(ctx context.Context, taskID string, fields domain.TaskFields) error
	DeleteTask(ctx context.Context, taskID string) error
	// InsertHistory assigns ID and ChangedAt on the passed entry.
	InsertHistory(ctx context.Context, entry *domain.HistoryEntry) error
	// DeleteHistory removes every entry of a task and returns how many were removed.
	DeleteHistory(ctx context.Context, taskID string) (int, error)
}

// Store is the process-wide task store.
type Store interface {
	// InTx runs fn inside a transaction. A non-nil error from fn rolls back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	// ListTasks orders by creation time, newest first.
	ListTasks(ctx context.Context, q TaskQuery) ([]*domain.Task, error)
	// ListHistory orders by change time, newest first; ties go to the later insert.
	ListHistory(ctx context.Context, taskID string) ([]*domain.HistoryEntry, error)
	CountTasksByStatus(ctx context.Context, q TaskQuery) (map[domain.TaskStatus]int, error)

	Ping(ctx context.Context) error
}
