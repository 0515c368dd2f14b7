package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/moviediary/watchlog/internal/contentful"
	"github.com/moviediary/watchlog/internal/domain"
)

// EntryClient is the slice of the CMA client the repository needs.
type EntryClient interface {
	GetEntry(ctx context.Context, id string) (*contentful.Entry, error)
	UpdateEntry(ctx context.Context, entry *contentful.Entry) (*contentful.Entry, error)
	PublishEntry(ctx context.Context, id string, version int) (*contentful.Entry, error)
}

// ContentfulRepository stores the list as one JSON array field of one entry.
type ContentfulRepository struct {
	client  EntryClient
	entryID string
	fieldID string
	locale  string
}

// NewContentfulRepository creates a repository for fields[fieldID][locale]
// of entry entryID.
func NewContentfulRepository(client EntryClient, entryID, fieldID, locale string) *ContentfulRepository {
	return &ContentfulRepository{client: client, entryID: entryID, fieldID: fieldID, locale: locale}
}

func (r *ContentfulRepository) fetch(ctx context.Context) (*contentful.Entry, error) {
	entry, err := r.client.GetEntry(ctx, r.entryID)
	if errors.Is(err, contentful.ErrNotFound) {
		return nil, fmt.Errorf("entry %s: %w", r.entryID, ErrCollectionNotFound)
	}
	return entry, err
}

// Load implements Repository.
func (r *ContentfulRepository) Load(ctx context.Context) (*Snapshot, error) {
	entry, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := entry.Fields[r.fieldID]; !ok {
		return nil, fmt.Errorf("entry %s has no field %s: %w", r.entryID, r.fieldID, ErrCollectionNotFound)
	}

	var items []domain.MediaRecord
	found, err := entry.Field(r.fieldID, r.locale, &items)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("entry %s has no %s/%s: %w", r.entryID, r.fieldID, r.locale, ErrCollectionNotFound)
	}
	if items == nil {
		items = []domain.MediaRecord{}
	}
	return &Snapshot{
		Items:            items,
		Version:          entry.Sys.Version,
		PublishedVersion: entry.Sys.PublishedVersion,
		UpdatedAt:        entry.Sys.UpdatedAt,
		handle:           entry,
	}, nil
}

// Save implements Repository.
func (r *ContentfulRepository) Save(ctx context.Context, base *Snapshot, items []domain.MediaRecord) (*Snapshot, error) {
	entry, ok := base.handle.(*contentful.Entry)
	if !ok {
		return nil, errors.New("snapshot was not loaded from contentful")
	}

	next := &contentful.Entry{Sys: entry.Sys, Fields: make(contentful.Fields, len(entry.Fields))}
	for k, v := range entry.Fields {
		next.Fields[k] = v
	}
	// Copy the list field's locale map so base keeps its own view.
	locales := make(map[string]json.RawMessage, len(entry.Fields[r.fieldID]))
	for loc, raw := range entry.Fields[r.fieldID] {
		locales[loc] = raw
	}
	next.Fields[r.fieldID] = locales
	if err := next.SetField(r.fieldID, r.locale, items); err != nil {
		return nil, err
	}

	updated, err := r.client.UpdateEntry(ctx, next)
	if errors.Is(err, contentful.ErrVersionMismatch) {
		return nil, fmt.Errorf("saving version %d: %w", base.Version, ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	updated.Fields = next.Fields
	return &Snapshot{
		Items:            items,
		Version:          updated.Sys.Version,
		PublishedVersion: updated.Sys.PublishedVersion,
		UpdatedAt:        updated.Sys.UpdatedAt,
		handle:           updated,
	}, nil
}

// Publish implements Repository.
func (r *ContentfulRepository) Publish(ctx context.Context, snap *Snapshot) error {
	_, err := r.client.PublishEntry(ctx, r.entryID, snap.Version)
	if errors.Is(err, contentful.ErrVersionMismatch) {
		return fmt.Errorf("publishing version %d: %w", snap.Version, ErrConflict)
	}
	return err
}

// Describe implements Repository.
func (r *ContentfulRepository) Describe(ctx context.Context) (*EntryInfo, error) {
	entry, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	info := &EntryInfo{
		ID:               entry.Sys.ID,
		Version:          entry.Sys.Version,
		PublishedVersion: entry.Sys.PublishedVersion,
		CreatedAt:        entry.Sys.CreatedAt,
		UpdatedAt:        entry.Sys.UpdatedAt,
		PublishedAt:      entry.Sys.PublishedAt,
	}
	if entry.Sys.ContentType != nil {
		info.ContentType = entry.Sys.ContentType.Sys.ID
	}
	for name := range entry.Fields {
		info.Fields = append(info.Fields, name)
	}
	sort.Strings(info.Fields)

	var items []domain.MediaRecord
	if _, err := entry.Field(r.fieldID, r.locale, &items); err == nil {
		info.ItemCount = len(items)
	}
	return info, nil
}
