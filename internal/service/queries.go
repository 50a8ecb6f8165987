package service

import (
	"context"
	"fmt"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/store"
)

// GetTask returns a task visible to the caller.
func (s *TaskService) GetTask(ctx context.Context, identity *domain.Identity, taskID string) (*domain.Task, error) {
	sc, err := s.resolveScope(identity)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, storeError(err)
	}
	if !sc.canSee(task) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}
	return task, nil
}

// TaskQuery returns the store query that lists the caller's tasks.
func (s *TaskService) TaskQuery(identity *domain.Identity) (store.TaskQuery, error) {
	sc, err := s.resolveScope(identity)
	if err != nil {
		return store.TaskQuery{}, err
	}
	return sc.query(), nil
}

// ListTasks returns the caller's tasks, newest first, optionally filtered
// by status.
func (s *TaskService) ListTasks(
	ctx context.Context,
	identity *domain.Identity,
	statuses []domain.TaskStatus,
) ([]*domain.Task, error) {
	q, err := s.TaskQuery(identity)
	if err != nil {
		return nil, err
	}
	for _, st := range statuses {
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, st)
		}
	}
	q.Statuses = statuses

	tasks, err := s.store.ListTasks(ctx, q)
	if err != nil {
		return nil, storeError(err)
	}
	return tasks, nil
}

// ListHistory returns the history of a task visible to the caller, newest first.
func (s *TaskService) ListHistory(ctx context.Context, identity *domain.Identity, taskID string) ([]*domain.HistoryEntry, error) {
	if _, err := s.GetTask(ctx, identity, taskID); err != nil {
		return nil, err
	}

	entries, err := s.store.ListHistory(ctx, taskID)
	if err != nil {
		return nil, storeError(err)
	}
	return entries, nil
}

// StatusCounts counts the caller's tasks per status. Every status is present.
func (s *TaskService) StatusCounts(ctx context.Context, identity *domain.Identity) (map[domain.TaskStatus]int, error) {
	q, err := s.TaskQuery(identity)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.CountTasksByStatus(ctx, q)
	if err != nil {
		return nil, storeError(err)
	}
	for _, st := range []domain.TaskStatus{domain.TaskStatusOngoing, domain.TaskStatusHold, domain.TaskStatusDone} {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}
