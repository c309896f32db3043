// Package testutil provides shared helpers for HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flagbeam/flagbeam/internal/api"
	"github.com/flagbeam/flagbeam/internal/store"
)

// NewTestServer creates an API server backed by an in-memory store.
func NewTestServer(t *testing.T, env, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	server := api.NewServer(memStore, env, adminKey, zerolog.Nop())
	return server, memStore
}

// HTTPRequest describes one test HTTP request.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the request against the handler and returns the recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedConfigs populates the store with flag configs.
func SeedConfigs(ctx context.Context, st store.Store, configs []store.UpsertParams) error {
	for _, params := range configs {
		if err := st.UpsertConfig(ctx, params); err != nil {
			return err
		}
	}
	return nil
}
