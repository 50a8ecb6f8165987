package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/tasktrack/internal/domain"
)

// HistoryRepository handles database operations for task history entries.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Create appends a history entry and fills in ID and ChangedAt.
func (r *HistoryRepository) Create(ctx context.Context, tx pgx.Tx, entry *domain.HistoryEntry) error {
	if !validID(entry.TaskID) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, entry.TaskID)
	}

	query, args, err := psql.
		Insert("task_histories").
		Columns("task_id", "actor", "change_description", "change_detail").
		Values(entry.TaskID, entry.Actor, entry.ChangeDescription, entry.ChangeDetail).
		Suffix("RETURNING id, changed_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.ChangedAt); err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}

	return nil
}

// GetByTaskID retrieves the history of a task, newest first.
func (r *HistoryRepository) GetByTaskID(ctx context.Context, taskID string) ([]*domain.HistoryEntry, error) {
	if !validID(taskID) {
		return []*domain.HistoryEntry{}, nil
	}

	query, args, err := psql.
		Select("id", "task_id", "changed_at", "actor", "change_description", "change_detail").
		From("task_histories").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("changed_at DESC", "seq DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history entries: %w", err)
	}
	defer rows.Close()

	entries := []*domain.HistoryEntry{}
	for rows.Next() {
		var entry domain.HistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.ChangedAt,
			&entry.Actor,
			&entry.ChangeDescription,
			&entry.ChangeDetail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}

// DeleteByTaskID removes every history entry of a task and returns the count.
func (r *HistoryRepository) DeleteByTaskID(ctx context.Context, tx pgx.Tx, taskID string) (int, error) {
	if !validID(taskID) {
		return 0, nil
	}

	query, args, err := psql.
		Delete("task_histories").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete history entries: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
