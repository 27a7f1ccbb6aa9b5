// internal/api/client.go
package api

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
	"time"

	"github.com/coachcore/playvault/internal/store"
	"github.com/coachcore/playvault/pkg/core"
)

// Client is the store.Remote implementation over the CoachCore play API.
// Non-2xx statuses, transport errors, and deadline hits all surface as plain
// errors; the facade treats every one of them as "remote unavailable".
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client with a bounded per-request timeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the play API is reachable. Used as the connectivity
// probe: a nil error means "online" for the snapshot taken at operation start.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Set upserts a play document.
func (c *Client) Set(ctx context.Context, play *core.Play) error {
	body, err := json.Marshal(play)
	if err != nil {
		return fmt.Errorf("failed to encode play %s: %w", play.ID, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/v1/plays/"+url.PathEscape(play.ID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("set request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("set returned status %d", resp.StatusCode)
	}
	return nil
}

// Get fetches a play document, or store.ErrNotFound on 404.
func (c *Client) Get(ctx context.Context, id string) (*core.Play, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/plays/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get returned status %d", resp.StatusCode)
	}

	var play core.Play
	if err := json.NewDecoder(resp.Body).Decode(&play); err != nil {
		return nil, fmt.Errorf("failed to decode play %s: %w", id, err)
	}
	play.CreatedAt = play.CreatedAt.UTC()
	play.UpdatedAt = play.UpdatedAt.UTC()
	return &play, nil
}

// Query fetches plays matching the filter.
func (c *Client) Query(ctx context.Context, f store.Filter) ([]core.Play, error) {
	params := url.Values{}
	if f.CoachID != "" {
		params.Set("coachId", f.CoachID)
	}
	if f.TeamID != "" {
		params.Set("teamId", f.TeamID)
	}
	if f.Category != "" {
		params.Set("category", f.Category)
	}
	if f.Formation != "" {
		params.Set("formation", f.Formation)
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	path := "/api/v1/plays"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query returned status %d", resp.StatusCode)
	}

	var plays []core.Play
	if err := json.NewDecoder(resp.Body).Decode(&plays); err != nil {
		return nil, fmt.Errorf("failed to decode query result: %w", err)
	}
	for i := range plays {
		plays[i].CreatedAt = plays[i].CreatedAt.UTC()
		plays[i].UpdatedAt = plays[i].UpdatedAt.UTC()
	}
	return plays, nil
}

// Delete removes a play document. A 404 counts as success since the remote
// copy is already gone.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/v1/plays/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return req, nil
}
