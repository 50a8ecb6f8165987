package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/tasktrack/internal/store"
)

// NotifyChannel is the PostgreSQL channel the change triggers notify on.
const NotifyChannel = "task_changes"

// Listener forwards database change notifications to a store.Publisher.
type Listener struct {
	pool       *pgxpool.Pool
	pub        store.Publisher
	retryDelay time.Duration
}

// NewListener creates a new Listener.
func NewListener(pool *pgxpool.Pool, pub store.Publisher) *Listener {
	return &Listener{
		pool:       pool,
		pub:        pub,
		retryDelay: 2 * time.Second,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection errors.
func (l *Listener) Run(ctx context.Context) {
	slog.Info("change listener started", "channel", NotifyChannel)

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			slog.Info("change listener stopped")
			return
		}

		slog.Error("change listener failed, retrying",
			"error", err,
			"retry_in", l.retryDelay,
		)

		select {
		case <-ctx.Done():
			slog.Info("change listener stopped")
			return
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	// The subscribed connection leaves the pool and is closed on exit.
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		change, err := decodeChange([]byte(n.Payload))
		if err != nil {
			slog.Warn("dropping malformed change notification",
				"payload", n.Payload,
				"error", err,
			)
			continue
		}
		l.pub.Publish(change)
	}
}

func decodeChange(payload []byte) (store.Change, error) {
	var change store.Change
	if err := json.Unmarshal(payload, &change); err != nil {
		return store.Change{}, fmt.Errorf("decode change: %w", err)
	}
	if change.Collection != store.CollectionTasks && change.Collection != store.CollectionHistories {
		return store.Change{}, errors.New("unknown collection " + string(change.Collection))
	}
	return change, nil
}
