package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by Run when another process owns the lock.
var ErrHeld = errors.New("lock held by another process")

// ErrLost is returned by Extend when the lock expired or changed owner.
var ErrLost = errors.New("lock no longer owned")

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock creates a distributed lock using the best available backend:
// Redis when redisClient is non-nil, a PostgreSQL advisory lock when db is
// non-nil, otherwise a process-local no-op.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl)
	case db != nil:
		return NewPGAdvisoryLock(db, key)
	default:
		return Noop{}
	}
}

// Extender is implemented by locks that expire unless refreshed.
// A ttl of zero means the lock's own TTL.
type Extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
}

type keepAliveKey struct{}

// Run acquires l, runs fn and releases l. Release uses a fresh context so a
// cancelled ctx does not leave the lock behind. When l is an Extender, fn
// can call KeepAlive on its ctx to push back the expiry.
func Run(ctx context.Context, l DistLock, fn func(ctx context.Context) error) error {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Release(rctx)
	}()
	if ext, ok := l.(Extender); ok {
		ctx = context.WithValue(ctx, keepAliveKey{}, ext)
	}
	return fn(ctx)
}

// KeepAlive refreshes the expiring lock Run holds for ctx. It returns an
// error when the lock has been lost, and nil when ctx carries no
// expiring lock.
func KeepAlive(ctx context.Context) error {
	ext, ok := ctx.Value(keepAliveKey{}).(Extender)
	if !ok {
		return nil
	}
	return ext.Extend(ctx, 0)
}

// Noop always succeeds. Used when neither Redis nor Postgres is configured,
// which is the normal single-operator setup.
type Noop struct{}

func (Noop) Acquire(context.Context) (bool, error) { return true, nil }
func (Noop) Release(context.Context) error         { return nil }

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// pg_try_advisory_lock / pg_advisory_unlock are session-scoped, so the lock
// goes away if the connection drops. Both calls must run on the same
// connection, hence the pinned *sql.Conn.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock connection: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock and returns the connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
