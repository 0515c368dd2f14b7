package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/stats"
)

// VerifyOptions selects the records traced through country attribution.
// With neither set, the first movie attributed by each rule is traced.
type VerifyOptions struct {
	IDs    []int
	Titles []string
}

// Coverage counts how many items carry the fields attribution reads.
type Coverage struct {
	MoviesWithLanguage  int `json:"moviesWithLanguage"`
	MoviesWithCountries int `json:"moviesWithCountries"`
	MoviesWithDirector  int `json:"moviesWithDirector"`
	ShowsWithOrigin     int `json:"showsWithOrigin"`
	ShowsWithCreator    int `json:"showsWithCreator"`
	MoviesUnattributed  int `json:"moviesUnattributed"`
}

// Trace shows how one record was attributed.
type Trace struct {
	Query     string           `json:"query"`
	Found     bool             `json:"found"`
	ID        int              `json:"id,omitempty"`
	Title     string           `json:"title,omitempty"`
	Type      domain.MediaType `json:"type,omitempty"`
	Language  string           `json:"language,omitempty"`
	Countries string           `json:"countries,omitempty"`
	Country   string           `json:"country,omitempty"`
	Source    stats.Source     `json:"source,omitempty"`
	People    []string         `json:"people,omitempty"`
}

// VerifyReport is the integrity and attribution check of the live list.
type VerifyReport struct {
	Counts   domain.TypeCounts   `json:"counts"`
	Coverage Coverage            `json:"coverage"`
	Traces   []Trace             `json:"traces"`
	Movies   domain.StatsSummary `json:"movies"`
	TV       domain.StatsSummary `json:"tv"`
}

// Verify loads the list and reports field coverage, attribution traces and
// the ranked tables the stats API would serve. It uses the same engine as
// the API so the two cannot disagree.
func (t *Toolkit) Verify(ctx context.Context, opts VerifyOptions) (*VerifyReport, error) {
	items, err := t.svc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading watch list: %w", err)
	}
	engine := t.svc.Engine()

	rep := &VerifyReport{
		Counts: domain.CountByType(items),
		Movies: engine.Summarize(items, domain.MediaTypeMovie),
		TV:     engine.Summarize(items, domain.MediaTypeTV),
	}

	for _, rec := range items {
		c := engine.Classify(rec)
		switch c.Type {
		case domain.MediaTypeMovie:
			if rec.Has(domain.FieldOriginalLanguage) {
				rep.Coverage.MoviesWithLanguage++
			}
			if rec.Has(domain.FieldProductionCountries) {
				rep.Coverage.MoviesWithCountries++
			}
			if len(c.People) > 0 {
				rep.Coverage.MoviesWithDirector++
			}
			if c.Country == "" {
				rep.Coverage.MoviesUnattributed++
			}
		case domain.MediaTypeTV:
			if rec.Has(domain.FieldOriginCountry) {
				rep.Coverage.ShowsWithOrigin++
			}
			if len(c.People) > 0 {
				rep.Coverage.ShowsWithCreator++
			}
		}
	}

	if len(opts.IDs) == 0 && len(opts.Titles) == 0 {
		rep.Traces = sampleTraces(engine, items)
		return rep, nil
	}
	for _, id := range opts.IDs {
		q := fmt.Sprintf("id:%d", id)
		rep.Traces = append(rep.Traces, trace(engine, q, findByID(items, id)))
	}
	for _, title := range opts.Titles {
		rep.Traces = append(rep.Traces, trace(engine, title, findByTitle(items, title)))
	}
	return rep, nil
}

// sampleTraces picks the first movie attributed by each rule.
func sampleTraces(engine *stats.Engine, items []domain.MediaRecord) []Trace {
	var out []Trace
	seen := map[stats.Source]bool{}
	for _, rec := range items {
		if !rec.IsType(domain.MediaTypeMovie) {
			continue
		}
		c := engine.Classify(rec)
		if seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		out = append(out, trace(engine, string(c.Source), rec))
	}
	return out
}

func trace(engine *stats.Engine, query string, rec domain.MediaRecord) Trace {
	tr := Trace{Query: query}
	if rec == nil {
		return tr
	}
	c := engine.Classify(rec)
	tr.Found = true
	tr.ID = c.ID
	tr.Title = rec.Title()
	tr.Type = c.Type
	tr.Language = rec.String(domain.FieldOriginalLanguage)
	tr.Country = c.Country
	tr.Source = c.Source
	tr.People = c.People

	key := domain.FieldProductionCountries
	if c.Type == domain.MediaTypeTV {
		key = domain.FieldOriginCountry
	}
	if v, ok := rec[key]; ok {
		if b, err := json.Marshal(v); err == nil {
			tr.Countries = string(b)
		}
	}
	return tr
}

func findByID(items []domain.MediaRecord, id int) domain.MediaRecord {
	for _, rec := range items {
		if rid, ok := rec.ID(); ok && rid == id {
			return rec
		}
	}
	return nil
}

// findByTitle returns the first record whose title or name contains q,
// case-insensitively.
func findByTitle(items []domain.MediaRecord, q string) domain.MediaRecord {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	for _, rec := range items {
		if strings.Contains(strings.ToLower(rec.Title()), q) {
			return rec
		}
	}
	return nil
}
