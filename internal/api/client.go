package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error is returned for non-2xx replies.
type Error struct {
	Status  int
	Kind    string
	Message string
	Missing []string
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Client talks to a running kiosk daemon over HTTP.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	stream *http.Client
}

// NewClient builds a client for the daemon listening on bind, for example
// "127.0.0.1:8088" or "http://kiosk.local:8088".
func NewClient(bind, token string) (*Client, error) {
	raw := strings.TrimSpace(bind)
	if raw == "" {
		return nil, errors.New("api address is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 10 * time.Second},

		// Streams stay open until the caller cancels.
		stream: &http.Client{},
	}, nil
}

// Health fetches daemon status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Config fetches the full document.
func (c *Client) Config(ctx context.Context) (*ConfigResponse, error) {
	var resp ConfigResponse
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Patch merges a partial document.
func (c *Client) Patch(ctx context.Context, patch map[string]any) (*ConfigResponse, error) {
	var resp ConfigResponse
	if err := c.do(ctx, http.MethodPatch, "/api/config", patch, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Checksum fetches the document checksum.
func (c *Client) Checksum(ctx context.Context) (string, error) {
	var resp ChecksumResponse
	if err := c.do(ctx, http.MethodGet, "/api/config/checksum", nil, &resp); err != nil {
		return "", err
	}
	return resp.Checksum, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Kind: payload.Kind, Message: payload.Error, Missing: payload.Missing}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
