package stats

import (
	"strings"

	"github.com/moviediary/watchlog/internal/domain"
)

// Source names the rule that produced a record's country.
type Source string

const (
	SourceNone              Source = "none"
	SourceLanguage          Source = "language"
	SourceProductionCountry Source = "production_country"
	SourceOriginCountry     Source = "origin_country"
)

// Classified is the per-record result of classification. Country is empty
// when nothing could be attributed.
type Classified struct {
	ID      int              `json:"id"`
	Type    domain.MediaType `json:"type"`
	Country string           `json:"country,omitempty"`
	Source  Source           `json:"source"`
	People  []string         `json:"people"`
}

// Engine classifies and aggregates media records under one Policy.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	ambiguous map[string]struct{}
	languages map[string]string
}

// NewEngine builds an engine from p. The policy is copied.
func NewEngine(p Policy) *Engine {
	e := &Engine{
		ambiguous: make(map[string]struct{}, len(p.AmbiguousLanguages)),
		languages: make(map[string]string, len(p.LanguageCountries)),
	}
	for _, l := range p.AmbiguousLanguages {
		e.ambiguous[normalizeLanguage(l)] = struct{}{}
	}
	for k, v := range p.LanguageCountries {
		e.languages[normalizeLanguage(k)] = v
	}
	return e
}

var defaultEngine = NewEngine(DefaultPolicy())

// Default returns the engine built from DefaultPolicy.
func Default() *Engine { return defaultEngine }

// Classify resolves the type, country and credited people of one record.
// Missing or malformed fields resolve to no country / no people.
func (e *Engine) Classify(rec domain.MediaRecord) Classified {
	c := Classified{Type: rec.Type(), Source: SourceNone}
	c.ID, _ = rec.ID()

	if c.Type == domain.MediaTypeTV {
		if cc := firstCountry(rec.List(domain.FieldOriginCountry)); cc != "" {
			c.Country, c.Source = cc, SourceOriginCountry
		}
		c.People = creators(rec)
		return c
	}

	c.Country, c.Source = e.movieCountry(rec)
	c.People = splitPeople(rec[domain.FieldDirector])
	return c
}

// LanguageCountry returns the country a language maps to and whether the
// language is ambiguous. The mapping is returned even for ambiguous
// languages so reports can show it.
func (e *Engine) LanguageCountry(lang string) (country string, ambiguous bool) {
	lang = normalizeLanguage(lang)
	_, ambiguous = e.ambiguous[lang]
	return e.languages[lang], ambiguous
}

// movieCountry applies the hybrid rule: an unambiguous original language
// wins, otherwise the first production country.
func (e *Engine) movieCountry(rec domain.MediaRecord) (string, Source) {
	lang := normalizeLanguage(rec.String(domain.FieldOriginalLanguage))
	if lang != "" {
		if _, ambiguous := e.ambiguous[lang]; !ambiguous {
			if cc := e.languages[lang]; cc != "" {
				return cc, SourceLanguage
			}
		}
	}
	if cc := firstCountry(rec.List(domain.FieldProductionCountries)); cc != "" {
		return cc, SourceProductionCountry
	}
	return "", SourceNone
}

// firstCountry normalizes the first entry of a country list. Entries are
// either raw ISO-3166-1 strings or TMDB objects with iso_3166_1 and name.
func firstCountry(entries []any) string {
	if len(entries) == 0 {
		return ""
	}
	switch v := entries[0].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if iso, _ := v["iso_3166_1"].(string); strings.TrimSpace(iso) != "" {
			return strings.TrimSpace(iso)
		}
		name, _ := v["name"].(string)
		return strings.TrimSpace(name)
	}
	return ""
}

// creators prefers created_by over creator. created_by is normally the
// comma-joined string the enrichment tools write, but a raw TMDB array of
// {name} objects is accepted too.
func creators(rec domain.MediaRecord) []string {
	if people := splitPeople(rec[domain.FieldCreatedBy]); len(people) > 0 {
		return people
	}
	return splitPeople(rec[domain.FieldCreator])
}

func splitPeople(v any) []string {
	var out []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || name == domain.UnknownPerson {
			return
		}
		out = append(out, name)
	}

	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			add(part)
		}
	case []any:
		for _, item := range t {
			switch p := item.(type) {
			case string:
				add(p)
			case map[string]any:
				name, _ := p["name"].(string)
				add(name)
			}
		}
	}
	return out
}
