package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// Backends are the connections a lock can be built on. Either may be nil.
type Backends struct {
	Redis *redis.Client
	DB    *sql.DB
}

// Connect opens the backends named by redisURL and databaseURL. An empty
// URL leaves that backend nil. A Redis server that does not answer PING is
// dropped with an error so callers can fall back to PostgreSQL.
func Connect(ctx context.Context, redisURL, databaseURL string) (*Backends, error) {
	b := &Backends{}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
		}
		b.Redis = client
	}

	if databaseURL != "" {
		db, err := sql.Open("postgres", withConnectTimeout(databaseURL))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		db.SetMaxOpenConns(2)
		b.DB = db
	}
	return b, nil
}

// Lock builds the lock for key on the best available backend.
func (b *Backends) Lock(key string, ttl time.Duration) DistLock {
	if b == nil {
		return Noop{}
	}
	return NewLock(b.Redis, b.DB, key, ttl)
}

// Close closes every open backend.
func (b *Backends) Close() {
	if b == nil {
		return
	}
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}

func withConnectTimeout(dsn string) string {
	if strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "connect_timeout=5"
}
