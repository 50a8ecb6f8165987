package repository

import (
	"context"
	"fmt"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/store"
)

// CountByStatus returns the number of tasks per status matching q.
// Statuses without tasks are absent from the result.
func (r *TaskRepository) CountByStatus(ctx context.Context, q store.TaskQuery) (map[domain.TaskStatus]int, error) {
	query, args, err := whereQuery(psql.Select("status", "COUNT(*)").From("tasks"), q).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build CountByStatus query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var (
			status domain.TaskStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return counts, nil
}
