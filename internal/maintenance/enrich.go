package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/pkg/distlock"
	"github.com/moviediary/watchlog/internal/pkg/logger"
	"github.com/moviediary/watchlog/internal/stats"
	"github.com/moviediary/watchlog/internal/tmdb"
)

// Progress is reported once per item that is sent to TMDB.
type Progress struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// EnrichOptions narrows an enrichment run.
type EnrichOptions struct {
	// Type limits the run to movies or shows. Empty means both.
	Type domain.MediaType
	// Limit caps how many items are sent to TMDB. Zero means no cap.
	Limit    int
	Progress func(Progress)
}

// ItemError is one item that could not be enriched.
type ItemError struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// EnrichReport describes a credits enrichment run.
type EnrichReport struct {
	Counts   domain.TypeCounts `json:"counts"`
	Enriched int               `json:"enriched"`
	Skipped  int               `json:"skipped"`
	Failed   []ItemError       `json:"failed"`
	Applied  bool              `json:"applied"`
	Version  int               `json:"version,omitempty"`
	Duration time.Duration     `json:"duration"`
	Backup   *BackupReport     `json:"backup,omitempty"`
}

// EnrichCredits fills director and production_countries on movies, and
// creator and origin_country on shows, for every item missing either
// value. Items are fetched one at a time with the configured delay between
// them and the whole list is saved once at the end. media_type is written
// on every attempted item, even when its fetch failed.
func (t *Toolkit) EnrichCredits(ctx context.Context, opts EnrichOptions) (*EnrichReport, error) {
	if t.meta == nil {
		return nil, fmt.Errorf("%w: tmdb client", ErrNotConfigured)
	}
	if opts.Type != "" && !opts.Type.Valid() {
		return nil, fmt.Errorf("invalid media type %q", opts.Type)
	}

	bk, err := t.Backup(ctx)
	if err != nil {
		return nil, fmt.Errorf("safety backup: %w", err)
	}

	start := t.now()
	rep := &EnrichReport{Backup: bk}
	res, err := t.svc.Mutate(ctx, "enrich-credits", func(ctx context.Context, items []domain.MediaRecord) ([]domain.MediaRecord, bool, error) {
		rep.Counts = domain.CountByType(items)

		var pending []int
		for i, rec := range items {
			mt := rec.Type()
			if !mt.Valid() || (opts.Type != "" && mt != opts.Type) {
				continue
			}
			if hasCredits(rec) {
				rep.Skipped++
				continue
			}
			pending = append(pending, i)
		}
		if opts.Limit > 0 && len(pending) > opts.Limit {
			pending = pending[:opts.Limit]
		}

		changed := false
		for n, i := range pending {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			if err := distlock.KeepAlive(ctx); err != nil {
				return nil, false, fmt.Errorf("watch list lock: %w", err)
			}
			rec := items[i]
			id, _ := rec.ID()
			if opts.Progress != nil {
				opts.Progress(Progress{Index: n + 1, Total: len(pending), ID: id, Title: rec.Title()})
			}

			if err := t.enrichOne(ctx, rec); err != nil {
				if ctx.Err() != nil {
					return nil, false, ctx.Err()
				}
				logger.Warn("enrichment failed", "id", id, "title", rec.Title(), "error", err)
				rep.Failed = append(rep.Failed, ItemError{ID: id, Title: rec.Title(), Error: err.Error()})
				if !rec.Has(domain.FieldMediaType) {
					rec[domain.FieldMediaType] = string(rec.Type())
					changed = true
				}
				continue
			}
			rep.Enriched++
			changed = true

			if n < len(pending)-1 {
				if err := t.sleep(ctx); err != nil {
					return nil, false, err
				}
			}
		}
		return items, changed, nil
	})
	rep.Duration = t.now().Sub(start)
	if err != nil {
		return nil, err
	}
	rep.Applied = res.Changed
	rep.Version = res.Version
	return rep, nil
}

// hasCredits reports whether rec already carries credited people and a
// country. The Unknown placeholder does not count. Shows are credited
// through created_by or creator, the same fields the stats read.
func hasCredits(rec domain.MediaRecord) bool {
	if rec.Type() == domain.MediaTypeTV {
		return len(stats.Default().Classify(rec).People) > 0 && rec.Has(domain.FieldOriginCountry)
	}
	director := rec.String(domain.FieldDirector)
	return director != "" && director != domain.UnknownPerson && rec.Has(domain.FieldProductionCountries)
}

func (t *Toolkit) enrichOne(ctx context.Context, rec domain.MediaRecord) error {
	id, ok := rec.ID()
	if !ok {
		return errors.New("record has no numeric id")
	}

	if rec.Type() == domain.MediaTypeTV {
		show, err := t.meta.GetTV(ctx, id)
		if err != nil {
			return err
		}
		creator := strings.Join(show.CreatorNames(), ", ")
		if creator == "" {
			creator = domain.UnknownPerson
		}
		origin := show.OriginCountry
		if origin == nil {
			origin = []string{}
		}
		rec[domain.FieldCreator] = creator
		rec[domain.FieldOriginCountry] = origin
		rec[domain.FieldMediaType] = string(domain.MediaTypeTV)
		return nil
	}

	var (
		details *tmdb.Movie
		credits *tmdb.Credits
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = t.meta.GetMovie(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		credits, err = t.meta.GetMovieCredits(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	director, ok := credits.Director()
	if !ok {
		director = domain.UnknownPerson
	}
	rec[domain.FieldDirector] = director
	rec[domain.FieldProductionCountries] = details.CountryCodes()
	rec[domain.FieldMediaType] = string(domain.MediaTypeMovie)
	return nil
}
