package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mtlprog/tasktrack/internal/diff"
	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/store"
)

// Options configures a TaskService.
type Options struct {
	// Anonymous enables single-user mode: no identity is required and tasks
	// are not scoped to an owner.
	Anonymous bool
}

// TaskService applies task mutations together with their history entries.
type TaskService struct {
	store     store.Store
	anonymous bool
}

// NewTaskService creates a new TaskService.
func NewTaskService(st store.Store, opts Options) *TaskService {
	return &TaskService{
		store:     st,
		anonymous: opts.Anonymous,
	}
}

// Anonymous reports whether the service runs in single-user mode.
func (s *TaskService) Anonymous() bool {
	return s.anonymous
}

// inTx runs fn in a store transaction and maps store failures to
// domain.ErrPersistence. Domain errors raised inside fn pass through.
func (s *TaskService) inTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return storeError(s.store.InTx(ctx, fn))
}

func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

// loadVisible fetches a task inside tx and hides tasks owned by others.
func loadVisible(ctx context.Context, tx store.Tx, sc scope, taskID string) (*domain.Task, error) {
	task, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !sc.canSee(task) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}
	return task, nil
}

func newEntry(taskID, actor string, change diff.Change) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		TaskID:            taskID,
		Actor:             actor,
		ChangeDescription: change.Description,
		ChangeDetail:      change.Detail,
	}
}

// CreateTask writes a new task and its "Task created." entry.
func (s *TaskService) CreateTask(
	ctx context.Context,
	identity *domain.Identity,
	fields domain.TaskFields,
) (*domain.Task, error) {
	sc, err := s.resolveScope(identity)
	if err != nil {
		return nil, err
	}
	if err := validateCreate(fields); err != nil {
		return nil, err
	}

	task := (domain.Task{Status: domain.TaskStatusOngoing, OwnerID: sc.ownerID}).Apply(fields)

	err = s.inTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertTask(ctx, &task); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		entry := &domain.HistoryEntry{
			TaskID:            task.ID,
			Actor:             sc.actor(),
			ChangeDescription: domain.ChangeDescriptionCreated,
		}
		if err := tx.InsertHistory(ctx, entry); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task created",
		"task_id", task.ID,
		"owner_id", task.OwnerID,
		"actor", sc.actor(),
	)

	return &task, nil
}

// UpdateField applies an inline single-field edit. An edit that does not
// change the value writes nothing and returns the current task.
func (s *TaskService) UpdateField(
	ctx context.Context,
	identity *domain.Identity,
	taskID string,
	field domain.Field,
	value string,
) (*domain.Task, error) {
	sc, err := s.resolveScope(identity)
	if err != nil {
		return nil, err
	}
	fields, err := validateField(field, value)
	if err != nil {
		return nil, err
	}

	var (
		updated domain.Task
		change  *diff.Change
	)
	err = s.inTx(ctx, func(tx store.Tx) error {
		original, err := loadVisible(ctx, tx, sc, taskID)
		if err != nil {
			return err
		}

		change = diff.SingleField(*original, field, value)
		if change == nil {
			updated = *original
			return nil
		}

		if err := tx.UpdateTask(ctx, taskID, fields); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := tx.InsertHistory(ctx, newEntry(taskID, sc.actor(), *change)); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		updated = original.Apply(fields)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if change == nil {
		slog.Debug("task field unchanged", "task_id", taskID, "field", field)
	} else {
		slog.Info("task field updated",
			"task_id", taskID,
			"field", field,
			"actor", sc.actor(),
		)
	}

	return &updated, nil
}

// UpdateForm applies a full-form save. Every provided field is written; the
// history entry is derived from the task as it was before the write.
func (s *TaskService) UpdateForm(
	ctx context.Context,
	identity *domain.Identity,
	taskID string,
	fields domain.TaskFields,
) (*domain.Task, error) {
	sc, err := s.resolveScope(identity)
	if err != nil {
		return nil, err
	}
	if err := validateForm(fields); err != nil {
		return nil, err
	}

	var (
		updated domain.Task
		change  *diff.Change
	)
	err = s.inTx(ctx, func(tx store.Tx) error {
		original, err := loadVisible(ctx, tx, sc, taskID)
		if err != nil {
			return err
		}

		if err := tx.UpdateTask(ctx, taskID, fields); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		change = diff.Form(*original, fields)
		if change != nil {
			if err := tx.InsertHistory(ctx, newEntry(taskID, sc.actor(), *change)); err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
		}
		updated = original.Apply(fields)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task form saved",
		"task_id", taskID,
		"actor", sc.actor(),
		"history_written", change != nil,
	)

	return &updated, nil
}

// DeleteTask removes a task and every history entry it owns in one batch.
func (s *TaskService) DeleteTask(ctx context.Context, identity *domain.Identity, taskID string) error {
	sc, err := s.resolveScope(identity)
	if err != nil {
		return err
	}

	var removed int
	err = s.inTx(ctx, func(tx store.Tx) error {
		if _, err := loadVisible(ctx, tx, sc, taskID); err != nil {
			return err
		}

		n, err := tx.DeleteHistory(ctx, taskID)
		if err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		removed = n
		if err := tx.DeleteTask(ctx, taskID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("task deleted",
		"task_id", taskID,
		"history_removed", removed,
		"actor", sc.actor(),
	)

	return nil
}
