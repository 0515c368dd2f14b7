package contentful

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sys is the metadata block Contentful attaches to every resource.
type Sys struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Version          int        `json:"version,omitempty"`
	PublishedVersion int        `json:"publishedVersion,omitempty"`
	CreatedAt        time.Time  `json:"createdAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt,omitempty"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
	ContentType      *Link      `json:"contentType,omitempty"`
	LinkType         string     `json:"linkType,omitempty"`
}

// Link is a reference to another resource.
type Link struct {
	Sys Sys `json:"sys"`
}

// Fields maps a field id to its per-locale raw JSON values. Values are kept
// raw so fields this tool never touches are written back byte for byte.
type Fields map[string]map[string]json.RawMessage

// Entry is a CMA entry.
type Entry struct {
	Sys    Sys    `json:"sys"`
	Fields Fields `json:"fields"`
}

// Field decodes fields[id][locale] into dst with numbers preserved as
// json.Number. It reports false when the field or locale is absent.
func (e *Entry) Field(id, locale string, dst any) (bool, error) {
	raw, ok := e.Fields[id][locale]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return true, fmt.Errorf("decoding field %s/%s: %w", id, locale, err)
	}
	return true, nil
}

// SetField encodes v into fields[id][locale].
func (e *Entry) SetField(id, locale string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding field %s/%s: %w", id, locale, err)
	}
	if e.Fields == nil {
		e.Fields = Fields{}
	}
	if e.Fields[id] == nil {
		e.Fields[id] = map[string]json.RawMessage{}
	}
	e.Fields[id][locale] = raw
	return nil
}

// IsPublished reports whether the latest version is live.
func (e *Entry) IsPublished() bool {
	return e.Sys.PublishedVersion > 0 && e.Sys.Version == e.Sys.PublishedVersion+1
}

// EntryCollection is one page of a list query.
type EntryCollection struct {
	Total int     `json:"total"`
	Skip  int     `json:"skip"`
	Limit int     `json:"limit"`
	Items []Entry `json:"items"`
}

// AssetFile is the localized file block of an asset.
type AssetFile struct {
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// Asset is a CMA asset. Only the file is read.
type Asset struct {
	Sys    Sys `json:"sys"`
	Fields struct {
		Title map[string]string    `json:"title,omitempty"`
		File  map[string]AssetFile `json:"file,omitempty"`
	} `json:"fields"`
}

// URL returns the file URL for locale, or "".
func (a Asset) URL(locale string) string {
	return a.Fields.File[locale].URL
}

type assetCollection struct {
	Total int     `json:"total"`
	Items []Asset `json:"items"`
}

// Query filters a ListEntries call.
type Query struct {
	ContentType string
	Order       string
	Limit       int
}

var (
	// ErrNotFound is returned when the entry or space does not exist.
	ErrNotFound = errors.New("contentful: not found")
	// ErrVersionMismatch is returned when an update races another writer.
	ErrVersionMismatch = errors.New("contentful: version mismatch")
)

// APIError is a non-2xx response from the CMA.
type APIError struct {
	StatusCode int
	ErrorID    string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.ErrorID != "" {
		return fmt.Sprintf("contentful API error (status %d, %s): %s", e.StatusCode, e.ErrorID, e.Message)
	}
	return fmt.Sprintf("contentful API error (status %d): %s", e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrVersionMismatch:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

type errorBody struct {
	Sys       Sys    `json:"sys"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}
