package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MediaType enumerates the two kinds of watched items.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// Field names used inside a stored media record.
const (
	FieldID                  = "id"
	FieldMediaType           = "media_type"
	FieldTitle               = "title"
	FieldName                = "name"
	FieldFirstAirDate        = "first_air_date"
	FieldReleaseDate         = "release_date"
	FieldOriginalLanguage    = "original_language"
	FieldProductionCountries = "production_countries"
	FieldOriginCountry       = "origin_country"
	FieldDirector            = "director"
	FieldCreatedBy           = "created_by"
	FieldCreator             = "creator"
	FieldPosterPath          = "poster_path"
	FieldRating              = "rating"
	FieldReview              = "review"
	FieldDateWatched         = "dateWatched"
)

// UnknownPerson is the placeholder the enrichment tools write when TMDB has
// no director or creator. It never counts as a credited person.
const UnknownPerson = "Unknown"

// MediaRecord is one item of the stored watch list. The CMS owns the shape,
// so the record is kept as a raw JSON object and every key survives a
// read-modify-write untouched.
type MediaRecord map[string]any

// ID returns the TMDB identifier of the record.
func (r MediaRecord) ID() (int, bool) {
	switch v := r[FieldID].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Type resolves the media type: media_type when present, else tv when
// first_air_date is non-empty, else movie.
func (r MediaRecord) Type() MediaType {
	if mt := r.String(FieldMediaType); mt != "" {
		return MediaType(mt)
	}
	if r.String(FieldFirstAirDate) != "" {
		return MediaTypeTV
	}
	return MediaTypeMovie
}

// IsType reports whether the record resolves to t.
func (r MediaRecord) IsType(t MediaType) bool {
	return r.Type() == t
}

// Title returns title for movies, falling back to name for shows.
func (r MediaRecord) Title() string {
	if t := r.String(FieldTitle); t != "" {
		return t
	}
	return r.String(FieldName)
}

// String returns the value at key if it is a string, otherwise "".
func (r MediaRecord) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// List returns the value at key if it is a JSON array, otherwise nil.
func (r MediaRecord) List(key string) []any {
	switch v := r[key].(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return nil
}

// Strings returns the string elements of the array at key, skipping
// anything else.
func (r MediaRecord) Strings(key string) []string {
	var out []string
	for _, v := range r.List(key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether key is present with a non-empty value.
func (r MediaRecord) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	}
	return true
}

// Clone returns a shallow copy of the record.
func (r MediaRecord) Clone() MediaRecord {
	out := make(MediaRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of the record minus the given keys, and the keys
// that were actually present.
func (r MediaRecord) Without(keys []string) (MediaRecord, []string) {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := make(MediaRecord, len(r))
	var removed []string
	for k, v := range r {
		if _, ok := drop[k]; ok {
			removed = append(removed, k)
			continue
		}
		out[k] = v
	}
	return out, removed
}

// TypeCounts is the per-type breakdown of a collection.
type TypeCounts struct {
	Total  int `json:"total"`
	Movies int `json:"movies"`
	TV     int `json:"tv"`
}

// CountByType tallies records per resolved media type.
func CountByType(records []MediaRecord) TypeCounts {
	c := TypeCounts{Total: len(records)}
	for _, r := range records {
		switch r.Type() {
		case MediaTypeMovie:
			c.Movies++
		case MediaTypeTV:
			c.TV++
		}
	}
	return c
}

// FilterByType returns the records resolving to t, in input order.
func FilterByType(records []MediaRecord, t MediaType) []MediaRecord {
	var out []MediaRecord
	for _, r := range records {
		if r.IsType(t) {
			out = append(out, r)
		}
	}
	return out
}
