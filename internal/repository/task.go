package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/store"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "owner_id", "task_name", "person_in_charge", "description",
	"progress_note", "status", "created_at",
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.TaskName,
		&task.PersonInCharge,
		&task.Description,
		&task.ProgressNote,
		&task.Status,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	return r.get(ctx, r.pool, taskID, false)
}

// GetByIDForUpdate retrieves a task by ID with FOR UPDATE lock (within transaction).
func (r *TaskRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, taskID string) (*domain.Task, error) {
	return r.get(ctx, tx, taskID, true)
}

func (r *TaskRepository) get(ctx context.Context, q querier, taskID string, lock bool) (*domain.Task, error) {
	if !validID(taskID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}

	qb := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID})
	if lock {
		qb = qb.Suffix("FOR UPDATE")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query for task %s: %w", taskID, err)
	}

	task, err := scanTask(q.QueryRow(ctx, query, args...))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}
	return task, err
}

// whereQuery applies a store.TaskQuery to a select.
func whereQuery(qb sq.SelectBuilder, q store.TaskQuery) sq.SelectBuilder {
	if q.OwnerID != nil {
		qb = qb.Where(sq.Eq{"owner_id": *q.OwnerID})
	}
	if len(q.Statuses) > 0 {
		qb = qb.Where(sq.Eq{"status": q.Statuses})
	}
	return qb
}

// List retrieves tasks matching q, newest first.
func (r *TaskRepository) List(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	query, args, err := whereQuery(psql.Select(taskColumns...).From("tasks"), q).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	return scanTasks(rows)
}

// Create inserts a task within a transaction and fills in ID and CreatedAt.
func (r *TaskRepository) Create(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	if task.Status == "" {
		task.Status = domain.TaskStatusOngoing
	}

	query, args, err := psql.
		Insert("tasks").
		Columns("owner_id", "task_name", "person_in_charge", "description", "progress_note", "status").
		Values(
			task.OwnerID,
			task.TaskName,
			task.PersonInCharge,
			task.Description,
			task.ProgressNote,
			task.Status,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build Create query for task: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

// UpdateFields writes the provided fields of a task.
func (r *TaskRepository) UpdateFields(ctx context.Context, tx pgx.Tx, taskID string, fields domain.TaskFields) error {
	if fields.IsEmpty() {
		return nil
	}
	if !validID(taskID) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}

	ub := psql.Update("tasks").Where(sq.Eq{"id": taskID})
	if fields.TaskName != nil {
		ub = ub.Set("task_name", *fields.TaskName)
	}
	if fields.PersonInCharge != nil {
		ub = ub.Set("person_in_charge", *fields.PersonInCharge)
	}
	if fields.Description != nil {
		ub = ub.Set("description", *fields.Description)
	}
	if fields.Status != nil {
		ub = ub.Set("status", *fields.Status)
	}
	if fields.ProgressNote != nil {
		ub = ub.Set("progress_note", *fields.ProgressNote)
	}

	query, args, err := ub.ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateFields query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}

	return nil
}

// Delete removes a task. History rows must be removed first.
func (r *TaskRepository) Delete(ctx context.Context, tx pgx.Tx, taskID string) error {
	if !validID(taskID) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}

	query, args, err := psql.
		Delete("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}

	return nil
}
