// Package client is a Go client for the Platewise HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const apiPrefix = "/api/v1"

// Client talks to a Platewise server.
type Client struct {
	rest *resty.Client
}

// New creates a new Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	rest := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/") + apiPrefix).
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		rest.SetAuthToken(cfg.APIKey)
	}
	return &Client{rest: rest}, nil
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze checks a food against the rules without logging it.
func (c *Client) Analyze(ctx context.Context, food string) (*Analysis, error) {
	var out Analysis
	body := map[string]string{"food": food}
	if err := c.doJSON(ctx, http.MethodPost, "/analyze", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddEntry logs a food.
func (c *Client) AddEntry(ctx context.Context, entry NewEntry) (*AddEntryResult, error) {
	var out AddEntryResult
	if err := c.doJSON(ctx, http.MethodPost, "/entries", entry, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEntries returns logged entries. filter is "all", "sick" or "okay";
// empty means all.
func (c *Client) ListEntries(ctx context.Context, filter string) ([]Entry, error) {
	path := "/entries"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	var out []Entry
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEntry removes one entry.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/entries/"+url.PathEscape(id), nil, nil)
}

// ClearEntries removes every entry and returns how many were deleted.
func (c *Client) ClearEntries(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/entries", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// AddFavorite saves the entry with entryID as a favorite.
func (c *Client) AddFavorite(ctx context.Context, entryID string) (*Favorite, error) {
	var out Favorite
	body := map[string]string{"entry_id": entryID}
	if err := c.doJSON(ctx, http.MethodPost, "/favorites", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFavorites returns saved favorites.
func (c *Client) ListFavorites(ctx context.Context) ([]Favorite, error) {
	var out []Favorite
	if err := c.doJSON(ctx, http.MethodGet, "/favorites", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFavorite removes one favorite.
func (c *Client) DeleteFavorite(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/favorites/"+url.PathEscape(id), nil, nil)
}

// Suggestions fetches the advisor's suggestions.
func (c *Client) Suggestions(ctx context.Context) (*Suggestions, error) {
	var out Suggestions
	if err := c.doJSON(ctx, http.MethodGet, "/suggestions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads the diary report. format is "html" or "csv".
func (c *Client) Export(ctx context.Context, format, password string) (*Report, error) {
	body := map[string]string{"format": format, "password": password}
	resp, err := c.send(ctx, http.MethodPost, "/export", body)
	if err != nil {
		return nil, err
	}

	rep := &Report{ContentType: resp.Header().Get("Content-Type"), Body: resp.Body()}
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil {
		rep.Filename = params["filename"]
	}
	return rep, nil
}

// ArchiveLink returns a download URL for the report archived on date.
func (c *Client) ArchiveLink(ctx context.Context, date string) (*ArchiveLink, error) {
	var out ArchiveLink
	if err := c.doJSON(ctx, http.MethodGet, "/archive/"+url.PathEscape(date), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON sends a request and decodes a JSON response into out when out is
// non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send issues a request and converts error statuses into *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any) (*resty.Response, error) {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func decodeAPIError(resp *resty.Response) error {
	apiErr := &APIError{}
	data := resp.Body()
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Title == "" {
		apiErr.Title = http.StatusText(resp.StatusCode())
		apiErr.Detail = strings.TrimSpace(string(data))
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}
