package userstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

// Store implements interfaces.UserStore on SQLite. Reads run concurrently
// through the connection pool; writes are funneled through a single
// goroutine because SQLite allows only one writer at a time.
type Store struct {
	db       *sql.DB
	writeCh  chan writeOp
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
}

type writeOp struct {
	operation func(*sql.DB) error
	result    chan error
}

// Open opens (and if necessary creates) the user database at path.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open user database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(timeout)
	db.SetConnMaxIdleTime(timeout / 3)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply user schema: %w", err)
	}

	s := &Store{
		db:       db,
		writeCh:  make(chan writeOp, 100),
		shutdown: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeCh:
			err := op.operation(s.db)
			if err != nil {
				log.Printf("User store write failed, retrying in 5 seconds: %v", err)
				time.Sleep(5 * time.Second)
				err = op.operation(s.db)
				if err != nil {
					log.Printf("User store write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-s.shutdown:
			return
		}
	}
}

func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("user store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeCh <- writeOp{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("user store write timeout")
	case <-s.shutdown:
		return fmt.Errorf("user store is shutting down")
	}
}

// GetUser returns the stored account for userID.
func (s *Store) GetUser(ctx context.Context, userID string) (*types.User, error) {
	query := `
		SELECT id, name, avatar, status, last_seen
		FROM users
		WHERE id = ?
	`

	var user types.User
	var lastSeen sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.Name, &user.Avatar, &user.Status, &lastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %s: %w", userID, err)
	}

	if lastSeen.Valid {
		user.LastSeen = lastSeen.Time
	}
	return &user, nil
}

// SetPresence updates an account's status and last-seen timestamp.
// Unknown users are a no-op so anonymous ids never error here.
func (s *Store) SetPresence(ctx context.Context, userID, status string, lastSeen time.Time) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			UPDATE users
			SET status = ?, last_seen = ?
			WHERE id = ?
		`
		if _, err := db.ExecContext(ctx, query, status, lastSeen, userID); err != nil {
			return fmt.Errorf("failed to update presence for %s: %w", userID, err)
		}
		return nil
	})
}

// CreateUser inserts a new account row. Used by tests and by the REST
// layer's provisioning path.
func (s *Store) CreateUser(ctx context.Context, user *types.User) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO users (id, name, avatar, status, last_seen)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			user.ID, user.Name, user.Avatar, user.Status, user.LastSeen,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user %s: %w", user.ID, err)
		}
		return nil
	})
}

// Close shuts down the writer goroutine and the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	return s.db.Close()
}
