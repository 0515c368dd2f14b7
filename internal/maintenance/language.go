package maintenance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/pkg/distlock"
	"github.com/moviediary/watchlog/internal/pkg/logger"
)

// DefaultLanguageSample is how many movies PreviewLanguage fetches.
const DefaultLanguageSample = 20

// LanguageSample is one movie fetched during a preview.
type LanguageSample struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Language  string `json:"language"`
	Country   string `json:"country"`
	Ambiguous bool   `json:"ambiguous"`
}

// LanguageCount is one row of the sampled language distribution.
type LanguageCount struct {
	Language string `json:"language"`
	Country  string `json:"country"`
	Count    int    `json:"count"`
}

// LanguagePreview describes what AddLanguage would do.
type LanguagePreview struct {
	Movies       int              `json:"movies"`
	HaveLanguage int              `json:"haveLanguage"`
	NeedLanguage int              `json:"needLanguage"`
	Samples      []LanguageSample `json:"samples"`
	Distribution []LanguageCount  `json:"distribution"`
	Failed       []ItemError      `json:"failed"`
}

// PreviewLanguage fetches original_language for up to sample movies that
// lack it and reports the language distribution. Nothing is written.
func (t *Toolkit) PreviewLanguage(ctx context.Context, sample int) (*LanguagePreview, error) {
	if t.meta == nil {
		return nil, fmt.Errorf("%w: tmdb client", ErrNotConfigured)
	}
	if sample <= 0 {
		sample = DefaultLanguageSample
	}
	items, err := t.svc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading watch list: %w", err)
	}

	movies := domain.FilterByType(items, domain.MediaTypeMovie)
	prev := &LanguagePreview{Movies: len(movies)}
	var need []domain.MediaRecord
	for _, m := range movies {
		if m.Has(domain.FieldOriginalLanguage) {
			prev.HaveLanguage++
		} else {
			need = append(need, m)
		}
	}
	prev.NeedLanguage = len(need)
	if len(need) > sample {
		need = need[:sample]
	}

	engine := t.svc.Engine()
	dist := map[string]int{}
	for i, m := range need {
		id, _ := m.ID()
		movie, err := t.meta.GetMovie(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			prev.Failed = append(prev.Failed, ItemError{ID: id, Title: m.Title(), Error: err.Error()})
			continue
		}
		lang := strings.ToLower(movie.OriginalLanguage)
		if lang != "" {
			cc, ambiguous := engine.LanguageCountry(lang)
			if cc == "" {
				cc = strings.ToUpper(lang)
			}
			prev.Samples = append(prev.Samples, LanguageSample{ID: id, Title: m.Title(), Language: lang, Country: cc, Ambiguous: ambiguous})
			dist[lang]++
		}
		if i < len(need)-1 {
			if err := t.sleep(ctx); err != nil {
				return nil, err
			}
		}
	}

	for _, s := range prev.Samples {
		if n, ok := dist[s.Language]; ok {
			prev.Distribution = append(prev.Distribution, LanguageCount{Language: s.Language, Country: s.Country, Count: n})
			delete(dist, s.Language)
		}
	}
	sort.SliceStable(prev.Distribution, func(i, j int) bool { return prev.Distribution[i].Count > prev.Distribution[j].Count })
	return prev, nil
}

// LanguageReport describes an AddLanguage run.
type LanguageReport struct {
	BackupFile  string            `json:"backupFile"`
	Counts      domain.TypeCounts `json:"counts"`
	HadLanguage int               `json:"hadLanguage"`
	Added       int               `json:"added"`
	Failed      []ItemError       `json:"failed"`
	Applied     bool              `json:"applied"`
	Version     int               `json:"version,omitempty"`
}

// AddLanguage sets original_language on every movie lacking it, touching
// no other field. It refuses to run unless a backup already exists.
func (t *Toolkit) AddLanguage(ctx context.Context, opts EnrichOptions) (*LanguageReport, error) {
	if t.meta == nil {
		return nil, fmt.Errorf("%w: tmdb client", ErrNotConfigured)
	}
	if t.backups == nil {
		return nil, fmt.Errorf("%w: backup store", ErrNotConfigured)
	}
	latest, err := t.backups.Latest()
	if err != nil {
		return nil, fmt.Errorf("add-language needs a backup first: %w", err)
	}

	rep := &LanguageReport{BackupFile: latest.Name}
	res, err := t.svc.Mutate(ctx, "add-language", func(ctx context.Context, items []domain.MediaRecord) ([]domain.MediaRecord, bool, error) {
		rep.Counts = domain.CountByType(items)

		var pending []domain.MediaRecord
		for _, rec := range items {
			if !rec.IsType(domain.MediaTypeMovie) {
				continue
			}
			if rec.Has(domain.FieldOriginalLanguage) {
				rep.HadLanguage++
				continue
			}
			pending = append(pending, rec)
		}
		if opts.Limit > 0 && len(pending) > opts.Limit {
			pending = pending[:opts.Limit]
		}

		for n, rec := range pending {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			if err := distlock.KeepAlive(ctx); err != nil {
				return nil, false, fmt.Errorf("watch list lock: %w", err)
			}
			id, _ := rec.ID()
			if opts.Progress != nil {
				opts.Progress(Progress{Index: n + 1, Total: len(pending), ID: id, Title: rec.Title()})
			}
			movie, err := t.meta.GetMovie(ctx, id)
			switch {
			case err != nil && ctx.Err() != nil:
				return nil, false, ctx.Err()
			case err != nil:
				logger.Warn("language lookup failed", "id", id, "title", rec.Title(), "error", err)
				rep.Failed = append(rep.Failed, ItemError{ID: id, Title: rec.Title(), Error: err.Error()})
			case movie.OriginalLanguage != "":
				rec[domain.FieldOriginalLanguage] = movie.OriginalLanguage
				rep.Added++
			}
			if n < len(pending)-1 {
				if err := t.sleep(ctx); err != nil {
					return nil, false, err
				}
			}
		}
		return items, rep.Added > 0, nil
	})
	if err != nil {
		return nil, err
	}
	rep.Applied = res.Changed
	rep.Version = res.Version
	return rep, nil
}
