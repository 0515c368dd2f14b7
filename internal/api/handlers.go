package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/pkg/httputil"
	"github.com/moviediary/watchlog/internal/service/watchlist"
	"github.com/moviediary/watchlog/internal/stats"
)

// WatchlistReader is the read side of the watch list service.
type WatchlistReader interface {
	Load(ctx context.Context) ([]domain.MediaRecord, error)
	Stats(ctx context.Context, t domain.MediaType) (domain.StatsSummary, error)
}

// PostSource lists blog posts, newest first.
type PostSource interface {
	Posts(ctx context.Context) ([]domain.Post, error)
}

// Handlers contains the HTTP handlers of the public API.
type Handlers struct {
	watchlist WatchlistReader
	posts     PostSource
	health    *HealthChecker
}

// NewHandlers creates handlers. posts and health may be nil.
func NewHandlers(wl WatchlistReader, posts PostSource, health *HealthChecker) *Handlers {
	return &Handlers{watchlist: wl, posts: posts, health: health}
}

// FreshMoviesResponse is the body of GET /api/fresh-movies.
type FreshMoviesResponse struct {
	Movies []domain.MediaRecord `json:"movies"`
	Total  int                  `json:"total"`
}

// PostsResponse is the body of GET /api/posts. Error is set only on failure.
type PostsResponse struct {
	Posts []domain.Post `json:"posts"`
	Error string        `json:"error,omitempty"`
}

const msgListNotFound = "Movie list not found"

// GetStats returns the per-type statistics summary.
//
//	GET /api/stats?type=movie|tv
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	t, err := stats.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		httputil.BadRequest(w, "Invalid type. Use 'movie' or 'tv'.")
		return
	}

	summary, err := h.watchlist.Stats(r.Context(), t)
	if errors.Is(err, watchlist.ErrCollectionNotFound) {
		httputil.NotFound(w, msgListNotFound)
		return
	}
	if err != nil {
		httputil.InternalError(w, "Failed to fetch stats", err)
		return
	}
	httputil.OK(w, summary)
}

// GetFreshMovies returns the raw list straight from the CMS, bypassing
// every cache.
//
//	GET /api/fresh-movies
func (h *Handlers) GetFreshMovies(w http.ResponseWriter, r *http.Request) {
	httputil.NoStore(w)

	items, err := h.watchlist.Load(r.Context())
	if errors.Is(err, watchlist.ErrCollectionNotFound) {
		httputil.NotFound(w, msgListNotFound)
		return
	}
	if err != nil {
		httputil.InternalError(w, "Failed to fetch data", err)
		return
	}
	if items == nil {
		items = []domain.MediaRecord{}
	}
	httputil.OK(w, FreshMoviesResponse{Movies: items, Total: len(items)})
}

// GetPosts returns the blog posts. On failure the body still carries an
// empty posts array so the front end can render.
//
//	GET /api/posts
func (h *Handlers) GetPosts(w http.ResponseWriter, r *http.Request) {
	if h.posts == nil {
		httputil.JSON(w, http.StatusInternalServerError, PostsResponse{Posts: []domain.Post{}, Error: "Posts are not configured"})
		return
	}
	posts, err := h.posts.Posts(r.Context())
	if err != nil {
		httputil.JSON(w, http.StatusInternalServerError, PostsResponse{Posts: []domain.Post{}, Error: "Failed to fetch posts"})
		logRequestError(r, "fetching posts", err)
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	httputil.OK(w, PostsResponse{Posts: posts})
}
