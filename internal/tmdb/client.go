// Package tmdb is a read-only client for the three The Movie Database v3
// endpoints used to enrich the watch list.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/pkg/httpretry"
)

// ErrNotFound is returned for unknown ids.
var ErrNotFound = errors.New("tmdb: not found")

// Client is a TMDB API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new TMDB client
func NewClient(cfg config.TMDBConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries),
	}
}

// get fetches path and decodes the JSON body into dst.
func (c *Client) get(ctx context.Context, path string, dst any) error {
	params := url.Values{}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, api_key included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("executing request %s: %w", path, uerr.Err)
		}
		return fmt.Errorf("executing request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("TMDB API error (status %d) %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// GetMovie fetches movie details.
func (c *Client) GetMovie(ctx context.Context, id int) (*Movie, error) {
	var m Movie
	if err := c.get(ctx, "/movie/"+strconv.Itoa(id), &m); err != nil {
		return nil, fmt.Errorf("fetching movie %d: %w", id, err)
	}
	return &m, nil
}

// GetMovieCredits fetches a movie's credits.
func (c *Client) GetMovieCredits(ctx context.Context, id int) (*Credits, error) {
	var cr Credits
	if err := c.get(ctx, "/movie/"+strconv.Itoa(id)+"/credits", &cr); err != nil {
		return nil, fmt.Errorf("fetching credits for movie %d: %w", id, err)
	}
	return &cr, nil
}

// GetTV fetches show details.
func (c *Client) GetTV(ctx context.Context, id int) (*TV, error) {
	var t TV
	if err := c.get(ctx, "/tv/"+strconv.Itoa(id), &t); err != nil {
		return nil, fmt.Errorf("fetching tv %d: %w", id, err)
	}
	return &t, nil
}
