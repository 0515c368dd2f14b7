package watchlist

import (
	"context"
	"time"

	"github.com/moviediary/watchlog/internal/domain"
)

// Repository defines the storage contract for the watch list.
type Repository interface {
	// Load returns the current list. Returns ErrCollectionNotFound when the
	// entry or its list field does not exist.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the list, guarded by the version in base. Returns
	// ErrConflict when the stored version moved on.
	Save(ctx context.Context, base *Snapshot, items []domain.MediaRecord) (*Snapshot, error)

	// Publish makes the saved version live.
	Publish(ctx context.Context, snap *Snapshot) error

	// Describe returns metadata about the backing entry.
	Describe(ctx context.Context) (*EntryInfo, error)
}

// Snapshot is the list as read at one version. handle is opaque
// repository state needed to write the snapshot back.
type Snapshot struct {
	Items            []domain.MediaRecord
	Version          int
	PublishedVersion int
	UpdatedAt        time.Time

	handle any
}

// EntryInfo describes the CMS entry that stores the list.
type EntryInfo struct {
	ID               string     `json:"id"`
	ContentType      string     `json:"contentType"`
	Version          int        `json:"version"`
	PublishedVersion int        `json:"publishedVersion"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
	Fields           []string   `json:"fields"`
	ItemCount        int        `json:"itemCount"`
}

// Published reports whether the latest version is live.
func (e EntryInfo) Published() bool {
	return e.PublishedVersion > 0 && e.Version == e.PublishedVersion+1
}
