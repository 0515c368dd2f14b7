// Package contentful is a small Content Management API client covering the
// calls the watch list needs: read, update and publish one entry, list
// entries of a content type, and resolve assets.
package contentful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/pkg/httpretry"
	"github.com/moviediary/watchlog/internal/pkg/logger"
)

const contentTypeCMA = "application/vnd.contentful.management.v1+json"

// pageSize is the CMA maximum for entry collections.
const pageSize = 100

// Client is a Contentful CMA client bound to one space environment.
type Client struct {
	baseURL     string
	token       string
	spaceID     string
	environment string
	httpClient  httpretry.HTTPDoer
}

// NewClient creates a new CMA client
func NewClient(cfg config.ContentfulConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.ManagementToken,
		spaceID:     cfg.SpaceID,
		environment: cfg.Environment,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries),
	}
}

func (c *Client) envPath(parts ...string) string {
	return "/spaces/" + url.PathEscape(c.spaceID) +
		"/environments/" + url.PathEscape(c.environment) +
		"/" + strings.Join(parts, "/")
}

// doRequest makes an HTTP request to the CMA and returns the body of a 2xx
// response. version, when positive, is sent as X-Contentful-Version.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any, version int) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentTypeCMA)
	if version > 0 {
		req.Header.Set("X-Contentful-Version", strconv.Itoa(version))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Message != "" {
			apiErr.ErrorID = eb.Sys.ID
			apiErr.Message = eb.Message
			apiErr.RequestID = eb.RequestID
		}
		logger.Debug("contentful request failed", "method", method, "path", path, "status", resp.StatusCode, "error_id", apiErr.ErrorID)
		return nil, apiErr
	}
	return respBody, nil
}

func decodeNumbers(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}

// GetEntry fetches one entry by id.
func (c *Client) GetEntry(ctx context.Context, id string) (*Entry, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.envPath("entries", url.PathEscape(id)), nil, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching entry %s: %w", id, err)
	}
	var entry Entry
	if err := decodeNumbers(body, &entry); err != nil {
		return nil, fmt.Errorf("parsing entry %s: %w", id, err)
	}
	return &entry, nil
}

// UpdateEntry writes entry.Fields back, guarded by entry.Sys.Version. The
// returned entry carries the new version.
func (c *Client) UpdateEntry(ctx context.Context, entry *Entry) (*Entry, error) {
	payload := struct {
		Fields Fields `json:"fields"`
	}{Fields: entry.Fields}

	body, err := c.doRequest(ctx, http.MethodPut, c.envPath("entries", url.PathEscape(entry.Sys.ID)), nil, payload, entry.Sys.Version)
	if err != nil {
		return nil, fmt.Errorf("updating entry %s (version %d): %w", entry.Sys.ID, entry.Sys.Version, err)
	}
	var updated Entry
	if err := decodeNumbers(body, &updated); err != nil {
		return nil, fmt.Errorf("parsing updated entry %s: %w", entry.Sys.ID, err)
	}
	return &updated, nil
}

// PublishEntry publishes the given version of an entry.
func (c *Client) PublishEntry(ctx context.Context, id string, version int) (*Entry, error) {
	body, err := c.doRequest(ctx, http.MethodPut, c.envPath("entries", url.PathEscape(id), "published"), nil, nil, version)
	if err != nil {
		return nil, fmt.Errorf("publishing entry %s (version %d): %w", id, version, err)
	}
	var published Entry
	if err := decodeNumbers(body, &published); err != nil {
		return nil, fmt.Errorf("parsing published entry %s: %w", id, err)
	}
	return &published, nil
}

// ListEntries returns every entry matching q, following pagination.
// q.Limit caps the total; zero means all.
func (c *Client) ListEntries(ctx context.Context, q Query) ([]Entry, error) {
	var all []Entry
	for skip := 0; ; {
		params := url.Values{}
		if q.ContentType != "" {
			params.Set("content_type", q.ContentType)
		}
		if q.Order != "" {
			params.Set("order", q.Order)
		}
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("skip", strconv.Itoa(skip))

		body, err := c.doRequest(ctx, http.MethodGet, c.envPath("entries"), params, nil, 0)
		if err != nil {
			return nil, fmt.Errorf("listing entries: %w", err)
		}
		var page EntryCollection
		if err := decodeNumbers(body, &page); err != nil {
			return nil, fmt.Errorf("parsing entries: %w", err)
		}
		all = append(all, page.Items...)
		skip += len(page.Items)

		if q.Limit > 0 && len(all) >= q.Limit {
			return all[:q.Limit], nil
		}
		if len(page.Items) == 0 || skip >= page.Total {
			return all, nil
		}
	}
}

// GetAssets resolves asset ids to assets, keyed by id. Unknown ids are
// simply absent from the result.
func (c *Client) GetAssets(ctx context.Context, ids []string) (map[string]Asset, error) {
	out := make(map[string]Asset, len(ids))
	for start := 0; start < len(ids); start += pageSize {
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		params := url.Values{}
		params.Set("sys.id[in]", strings.Join(ids[start:end], ","))
		params.Set("limit", strconv.Itoa(pageSize))

		body, err := c.doRequest(ctx, http.MethodGet, c.envPath("assets"), params, nil, 0)
		if err != nil {
			return nil, fmt.Errorf("fetching assets: %w", err)
		}
		var page assetCollection
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing assets: %w", err)
		}
		for _, a := range page.Items {
			out[a.Sys.ID] = a
		}
	}
	return out, nil
}
