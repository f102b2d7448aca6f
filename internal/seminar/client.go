package seminar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 8 << 20

// Client reads seminars from the marketplace REST API (GET /api/seminars/:id).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a seminar API client. A zero timeout leaves requests bounded only by
// the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type seminarResponse struct {
	ID      any             `json:"id"`
	Title   string          `json:"title"`
	Program json.RawMessage `json:"program"`
}

// GetSeminar fetches one seminar. It makes a single attempt.
func (c *Client) GetSeminar(ctx context.Context, id string) (*Seminar, error) {
	if id == "" {
		return nil, fmt.Errorf("seminar id is empty")
	}

	endpoint := c.baseURL + "/api/seminars/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seminar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var payload seminarResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode seminar: %w", err)
	}

	sem := &Seminar{
		ID:      id,
		Title:   payload.Title,
		Program: payload.Program,
	}
	if payload.ID != nil {
		sem.ID = fmt.Sprint(payload.ID)
	}
	return sem, nil
}
