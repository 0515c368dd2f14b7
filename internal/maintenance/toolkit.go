package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/moviediary/watchlog/internal/backup"
	"github.com/moviediary/watchlog/internal/service/watchlist"
	"github.com/moviediary/watchlog/internal/tmdb"
)

// ErrNotConfigured is returned when an operation needs a dependency the
// toolkit was built without.
var ErrNotConfigured = errors.New("maintenance dependency not configured")

// Metadata is the subset of the TMDB client the enrichment operations use.
type Metadata interface {
	GetMovie(ctx context.Context, id int) (*tmdb.Movie, error)
	GetMovieCredits(ctx context.Context, id int) (*tmdb.Credits, error)
	GetTV(ctx context.Context, id int) (*tmdb.TV, error)
}

// Invalidator busts the CDN cache in front of the published list.
type Invalidator interface {
	Enabled() bool
	Invalidate(ctx context.Context) (string, error)
}

// Deps are the collaborators of a Toolkit. Metadata and CDN may be nil.
type Deps struct {
	Watchlist     *watchlist.Service
	Backups       *backup.Store
	Metadata      Metadata
	CDN           Invalidator
	EntryID       string
	CleanupFields []string
	Delay         time.Duration
}

// Toolkit runs maintenance operations against one watch list.
type Toolkit struct {
	svc           *watchlist.Service
	backups       *backup.Store
	meta          Metadata
	cdn           Invalidator
	entryID       string
	cleanupFields []string
	delay         time.Duration
	now           func() time.Time
}

// New creates a toolkit from deps.
func New(deps Deps) *Toolkit {
	return &Toolkit{
		svc:           deps.Watchlist,
		backups:       deps.Backups,
		meta:          deps.Metadata,
		cdn:           deps.CDN,
		entryID:       deps.EntryID,
		cleanupFields: append([]string(nil), deps.CleanupFields...),
		delay:         deps.Delay,
		now:           time.Now,
	}
}

// CleanupFields returns the fields Cleanup strips.
func (t *Toolkit) CleanupFields() []string {
	return append([]string(nil), t.cleanupFields...)
}

// sleep waits for the configured delay or until ctx is done.
func (t *Toolkit) sleep(ctx context.Context) error {
	if t.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
