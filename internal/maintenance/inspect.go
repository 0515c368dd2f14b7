package maintenance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/service/watchlist"
)

// InspectOptions selects what Inspect looks up.
type InspectOptions struct {
	IDs    []int
	Titles []string
	// Recent is how many of the latest dateWatched additions to list.
	Recent int
}

// Match is the result of one id or title lookup.
type Match struct {
	Query  string             `json:"query"`
	Found  bool               `json:"found"`
	Record domain.MediaRecord `json:"record,omitempty"`
}

// RecentItem is one entry of the most recently watched list.
type RecentItem struct {
	ID          int              `json:"id"`
	Title       string           `json:"title"`
	Type        domain.MediaType `json:"type"`
	DateWatched string           `json:"dateWatched"`
	Rating      any              `json:"rating,omitempty"`

	watched time.Time
}

// InspectReport is a read-only look at the backing entry.
type InspectReport struct {
	Entry   *watchlist.EntryInfo `json:"entry"`
	Counts  domain.TypeCounts    `json:"counts"`
	Matches []Match              `json:"matches"`
	Recent  []RecentItem         `json:"recent"`
}

// Inspect describes the entry, counts its items per type, looks up the
// requested records and lists the most recent additions.
func (t *Toolkit) Inspect(ctx context.Context, opts InspectOptions) (*InspectReport, error) {
	info, err := t.svc.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describing entry: %w", err)
	}
	items, err := t.svc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading watch list: %w", err)
	}

	rep := &InspectReport{Entry: info, Counts: domain.CountByType(items)}
	for _, id := range opts.IDs {
		rec := findByID(items, id)
		rep.Matches = append(rep.Matches, Match{Query: fmt.Sprintf("id:%d", id), Found: rec != nil, Record: rec})
	}
	for _, title := range opts.Titles {
		rec := findByTitle(items, title)
		rep.Matches = append(rep.Matches, Match{Query: title, Found: rec != nil, Record: rec})
	}
	if opts.Recent > 0 {
		rep.Recent = recentlyWatched(items, opts.Recent)
	}
	return rep, nil
}

var watchedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseWatched(s string) (time.Time, bool) {
	for _, layout := range watchedLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// recentlyWatched returns up to n items with a parseable dateWatched,
// newest first.
func recentlyWatched(items []domain.MediaRecord, n int) []RecentItem {
	var out []RecentItem
	for _, rec := range items {
		raw := rec.String(domain.FieldDateWatched)
		ts, ok := parseWatched(raw)
		if !ok {
			continue
		}
		id, _ := rec.ID()
		out = append(out, RecentItem{
			ID:          id,
			Title:       rec.Title(),
			Type:        rec.Type(),
			DateWatched: raw,
			Rating:      rec[domain.FieldRating],
			watched:     ts,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].watched.After(out[j].watched) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
