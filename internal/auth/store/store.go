package store

import (
	"context"
	"errors"
	"time"

	"github.com/pulsefeed/pulse/internal/auth/domain"
	"github.com/pulsefeed/pulse/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Users() Users
	RefreshSessions() RefreshSessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh rotation).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists if the email or username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id idx.ID) (domain.User, error)

	// GetUserByEmail is used during password login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// UsernameExists reports whether any user already holds the username.
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type RefreshSessions interface {
	// CreateRefreshSession stores a new device session row.
	CreateRefreshSession(ctx context.Context, s domain.RefreshSession) error

	// ListActiveRefreshSessions returns the user's sessions that have not
	// expired at now. Rotation verifies a presented token against each
	// row's salted hash; there is no lookup by token.
	ListActiveRefreshSessions(ctx context.Context, userID idx.ID, now time.Time) ([]domain.RefreshSession, error)

	// DeleteRefreshSession removes one session by id and reports how many
	// rows were deleted. Concurrent rotations race on this: exactly one
	// caller sees 1.
	DeleteRefreshSession(ctx context.Context, id idx.ID) (int64, error)

	// DeleteAllUserRefreshSessions removes every session for a user and
	// reports the count (devices logged out).
	DeleteAllUserRefreshSessions(ctx context.Context, userID idx.ID) (int64, error)

	// DeleteExpiredRefreshSessions is housekeeping.
	DeleteExpiredRefreshSessions(ctx context.Context, now time.Time) error
}
