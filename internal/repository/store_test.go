package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/tasktrack/internal/database"
	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/repository"
	"github.com/mtlprog/tasktrack/internal/store"
)

type recorder struct {
	mu      sync.Mutex
	changes []store.Change
}

func (r *recorder) Publish(c store.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) snapshot() []store.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Change(nil), r.changes...)
}

// StoreTestSuite runs the PostgreSQL store against a live database.
type StoreTestSuite struct {
	suite.Suite
	pool  *pgxpool.Pool
	store *repository.Store
}

// SetupSuite runs once before all tests.
func (s *StoreTestSuite) SetupSuite() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		s.T().Skip("DATABASE_URL not set")
	}

	ctx := context.Background()

	db, err := database.New(ctx, databaseURL, database.PoolConfig{MaxConns: 4})
	s.Require().NoError(err, "failed to connect to database")
	s.pool = db.Pool()

	err = database.RunMigrations(ctx, s.pool)
	s.Require().NoError(err, "failed to run migrations")

	s.store = repository.NewStore(s.pool)
}

// SetupTest runs before each test.
func (s *StoreTestSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE tasks, task_histories")
	s.Require().NoError(err, "failed to truncate tables")
}

// TearDownSuite runs once after all tests.
func (s *StoreTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *StoreTestSuite) insert(owner, name string) *domain.Task {
	ctx := context.Background()
	task := &domain.Task{OwnerID: owner, TaskName: name, PersonInCharge: "Alice"}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertTask(ctx, task); err != nil {
			return err
		}
		return tx.InsertHistory(ctx, &domain.HistoryEntry{
			TaskID:            task.ID,
			Actor:             "Alice",
			ChangeDescription: domain.ChangeDescriptionCreated,
		})
	})
	s.Require().NoError(err)
	return task
}

// TestInsertAndGet tests store-assigned fields round trip.
func (s *StoreTestSuite) TestInsertAndGet() {
	task := s.insert("u1", "Ship v2")
	s.NotEmpty(task.ID)
	s.False(task.CreatedAt.IsZero())

	got, err := s.store.GetTask(context.Background(), task.ID)
	s.Require().NoError(err)
	s.Equal("Ship v2", got.TaskName)
	s.Equal(domain.TaskStatusOngoing, got.Status)
	s.Empty(got.Description)
}

// TestGetTask_NotFound tests missing and malformed ids.
func (s *StoreTestSuite) TestGetTask_NotFound() {
	_, err := s.store.GetTask(context.Background(), "00000000-0000-0000-0000-000000000099")
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = s.store.GetTask(context.Background(), "not-a-uuid")
	s.ErrorIs(err, domain.ErrNotFound)
}

// TestListTasks_ScopedAndOrdered tests owner scoping and newest-first order.
func (s *StoreTestSuite) TestListTasks_ScopedAndOrdered() {
	first := s.insert("u1", "first")
	second := s.insert("u1", "second")
	s.insert("u2", "other")

	owner := "u1"
	tasks, err := s.store.ListTasks(context.Background(), store.TaskQuery{OwnerID: &owner})
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal(second.ID, tasks[0].ID)
	s.Equal(first.ID, tasks[1].ID)

	counts, err := s.store.CountTasksByStatus(context.Background(), store.TaskQuery{})
	s.Require().NoError(err)
	s.Equal(3, counts[domain.TaskStatusOngoing])
}

// TestHistory_TiesOrderedByInsertion tests entries written in one transaction.
func (s *StoreTestSuite) TestHistory_TiesOrderedByInsertion() {
	task := s.insert("u1", "Ship v2")
	ctx := context.Background()

	// NOW() is fixed per transaction, so both entries share changed_at.
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		for _, d := range []string{"one", "two"} {
			if err := tx.InsertHistory(ctx, &domain.HistoryEntry{TaskID: task.ID, Actor: "x", ChangeDescription: d}); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)

	entries, err := s.store.ListHistory(ctx, task.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("two", entries[0].ChangeDescription)
	s.Equal("one", entries[1].ChangeDescription)
}

// TestDelete_RequiresHistoryFirst tests the foreign key that prevents orphans.
func (s *StoreTestSuite) TestDelete_RequiresHistoryFirst() {
	task := s.insert("u1", "Ship v2")
	ctx := context.Background()

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.DeleteTask(ctx, task.ID)
	})
	s.Error(err)

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		n, err := tx.DeleteHistory(ctx, task.ID)
		if err != nil {
			return err
		}
		s.Equal(1, n)
		return tx.DeleteTask(ctx, task.ID)
	})
	s.Require().NoError(err)

	_, err = s.store.GetTask(ctx, task.ID)
	s.ErrorIs(err, domain.ErrNotFound)
}

// TestListener_PublishesChanges tests that triggers reach the publisher.
func (s *StoreTestSuite) TestListener_PublishesChanges() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go repository.NewListener(s.pool, rec).Run(ctx)
	// Give LISTEN time to register.
	time.Sleep(200 * time.Millisecond)

	task := s.insert("u1", "Ship v2")

	s.Eventually(func() bool {
		var sawTask, sawHistory bool
		for _, c := range rec.snapshot() {
			if c.TaskID != task.ID {
				continue
			}
			sawTask = sawTask || (c.Collection == store.CollectionTasks && c.OwnerID == "u1")
			sawHistory = sawHistory || c.Collection == store.CollectionHistories
		}
		return sawTask && sawHistory
	}, 5*time.Second, 50*time.Millisecond)
}

// TestListener_LeavesPoolUnsubscribed tests that a stopped listener does not
// hand a subscribed connection back to the pool.
func (s *StoreTestSuite) TestListener_LeavesPoolUnsubscribed() {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		repository.NewListener(s.pool, &recorder{}).Run(ctx)
	}()
	// Give LISTEN time to register.
	time.Sleep(200 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("listener did not stop")
	}

	conns := s.pool.AcquireAllIdle(context.Background())
	defer func() {
		for _, c := range conns {
			c.Release()
		}
	}()
	for _, c := range conns {
		var channels int
		err := c.QueryRow(context.Background(), "SELECT count(*) FROM pg_listening_channels()").Scan(&channels)
		s.Require().NoError(err)
		s.Zero(channels)
	}
}

// TestStoreTestSuite runs the test suite.
func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
