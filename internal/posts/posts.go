// Package posts serves the blog's post feed, either live from the CMS or
// as a static index aggregated from JSON files.
package posts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/moviediary/watchlog/internal/contentful"
	"github.com/moviediary/watchlog/internal/domain"
)

// Defaults applied when a post entry omits a field.
const (
	DefaultTitle    = "Untitled"
	DefaultCategory = "Uncategorized"
)

// Source is the subset of the CMS client the feed reads.
type Source interface {
	ListEntries(ctx context.Context, q contentful.Query) ([]contentful.Entry, error)
	GetAssets(ctx context.Context, ids []string) (map[string]contentful.Asset, error)
}

// Feed loads posts of one content type, newest first.
type Feed struct {
	src         Source
	contentType string
	locale      string
}

// NewFeed creates a feed for entries of contentType.
func NewFeed(src Source, contentType, locale string) *Feed {
	return &Feed{src: src, contentType: contentType, locale: locale}
}

// Posts fetches every post entry, resolves its image assets and maps it
// to the simplified post shape.
func (f *Feed) Posts(ctx context.Context) ([]domain.Post, error) {
	entries, err := f.src.ListEntries(ctx, contentful.Query{ContentType: f.contentType, Order: "-sys.createdAt"})
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := map[string]bool{}
	for i := range entries {
		for _, id := range assetIDs(&entries[i], f.locale) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	assets := map[string]contentful.Asset{}
	if len(ids) > 0 {
		if assets, err = f.src.GetAssets(ctx, ids); err != nil {
			return nil, err
		}
	}
	return FromEntries(entries, assets, f.locale), nil
}

// FromEntries maps CMS entries to posts. Missing fields take defaults: the
// title is Untitled, the category Uncategorized, and the type is photoset
// when there are images, photo when there is a single image, else text.
// Image links that do not resolve are dropped.
func FromEntries(entries []contentful.Entry, assets map[string]contentful.Asset, locale string) []domain.Post {
	out := make([]domain.Post, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		p := domain.Post{
			ID:       e.Sys.ID,
			Title:    stringField(e, "title", locale),
			Date:     e.Sys.CreatedAt.UTC().Format(time.RFC3339Nano),
			Type:     domain.PostType(stringField(e, "type", locale)),
			Category: stringField(e, "category", locale),
			Body:     stringField(e, "body", locale),
			Images:   []string{},
		}
		if p.Title == "" {
			p.Title = DefaultTitle
		}
		if p.Category == "" {
			p.Category = DefaultCategory
		}

		var images []json.RawMessage
		if ok, _ := e.Field("images", locale, &images); ok {
			for _, raw := range images {
				if url := resolveImage(raw, assets, locale); url != "" {
					p.Images = append(p.Images, url)
				}
			}
		}
		var image json.RawMessage
		if ok, _ := e.Field("image", locale, &image); ok {
			if url := resolveImage(image, assets, locale); url != "" {
				p.Image = &url
			}
		}

		if p.Type == "" {
			switch {
			case len(images) > 0:
				p.Type = domain.PostTypePhotoset
			case len(image) > 0:
				p.Type = domain.PostTypePhoto
			default:
				p.Type = domain.PostTypeText
			}
		}
		out = append(out, p)
	}
	return out
}

func stringField(e *contentful.Entry, id, locale string) string {
	var s string
	if ok, err := e.Field(id, locale, &s); !ok || err != nil {
		return ""
	}
	return s
}

// imageRef is either an asset link or an already-resolved asset.
type imageRef struct {
	Sys    contentful.Sys `json:"sys"`
	Fields struct {
		File map[string]contentful.AssetFile `json:"file"`
	} `json:"fields"`
}

func resolveImage(raw json.RawMessage, assets map[string]contentful.Asset, locale string) string {
	var ref imageRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	if url := ref.Fields.File[locale].URL; url != "" {
		return url
	}
	if a, ok := assets[ref.Sys.ID]; ok {
		return a.URL(locale)
	}
	return ""
}

func assetIDs(e *contentful.Entry, locale string) []string {
	var ids []string
	collect := func(raw json.RawMessage) {
		var ref imageRef
		if json.Unmarshal(raw, &ref) == nil && ref.Sys.ID != "" && ref.Sys.LinkType == "Asset" {
			ids = append(ids, ref.Sys.ID)
		}
	}
	var images []json.RawMessage
	if ok, _ := e.Field("images", locale, &images); ok {
		for _, raw := range images {
			collect(raw)
		}
	}
	var image json.RawMessage
	if ok, _ := e.Field("image", locale, &image); ok {
		collect(image)
	}
	return ids
}
