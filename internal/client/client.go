// Package client is an HTTP client for the flagbeam API, used by the CLI
// and usable as a minimal server-side SDK.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flagbeam/flagbeam/internal/engine"
	"github.com/flagbeam/flagbeam/internal/evalcontext"
	"github.com/flagbeam/flagbeam/internal/flags"
	"github.com/flagbeam/flagbeam/internal/snapshot"
	"github.com/flagbeam/flagbeam/internal/store"
)

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// EvaluateResponse mirrors the bulk evaluate endpoint body.
type EvaluateResponse struct {
	Flags       map[string]engine.Result `json:"flags"`
	ETag        string                   `json:"etag"`
	EvaluatedAt string                   `json:"evaluatedAt"`
}

// Evaluate evaluates flags for one subject. An empty keys slice evaluates
// every active flag.
func (c *Client) Evaluate(ctx context.Context, raw evalcontext.Raw, keys []string) (*EvaluateResponse, error) {
	body, err := json.Marshal(map[string]any{"context": raw, "keys": keys})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Snapshot fetches the current snapshot. Passing the previous ETag enables
// the not-modified path; (nil, "", nil) means the cached snapshot is still
// current.
func (c *Client) Snapshot(ctx context.Context, etag string) (*snapshot.Snapshot, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/flags/snapshot", nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", apiError(resp)
	}

	var snap snapshot.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	return &snap, resp.Header.Get("ETag"), nil
}

// UpsertFlag creates or replaces a flag config. Requires the admin key.
func (c *Client) UpsertFlag(ctx context.Context, params store.UpsertParams) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/flags", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// GetFlag retrieves one flag config by key. Requires the admin key.
func (c *Client) GetFlag(ctx context.Context, key, env string) (*flags.FlagConfig, error) {
	u, err := url.Parse(c.BaseURL + "/v1/flags/" + url.PathEscape(key))
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if env != "" {
		q := u.Query()
		q.Set("env", env)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var fc flags.FlagConfig
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &fc, nil
}

// DeleteFlag removes a flag config. Requires the admin key.
func (c *Client) DeleteFlag(ctx context.Context, key, env string) error {
	u, err := url.Parse(c.BaseURL + "/v1/flags/" + url.PathEscape(key))
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	if env != "" {
		q := u.Query()
		q.Set("env", env)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
}
