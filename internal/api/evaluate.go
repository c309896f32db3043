package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flagbeam/flagbeam/internal/engine"
	"github.com/flagbeam/flagbeam/internal/evalcontext"
	"github.com/flagbeam/flagbeam/internal/snapshot"
	"github.com/flagbeam/flagbeam/internal/telemetry"
)

// evaluateRequest is the body for POST /v1/evaluate. An absent context is
// allowed; the subject is then anonymous and gets no stable rollout
// assignment.
type evaluateRequest struct {
	Context evalcontext.Raw `json:"context"`
	Keys    []string        `json:"keys,omitempty"`
}

type evaluateResponse struct {
	Flags       map[string]engine.Result `json:"flags"`
	ETag        string                   `json:"etag"`
	EvaluatedAt string                   `json:"evaluatedAt"`
}

type evaluateOneResponse struct {
	engine.Result
	ETag        string `json:"etag"`
	EvaluatedAt string `json:"evaluatedAt"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	s.evaluate(w, req.Context, req.Keys)
}

// handleEvaluateGET evaluates from query parameters: userId, sessionId, and
// keys are recognized, every other parameter becomes a string attribute.
func (s *Server) handleEvaluateGET(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var keys []string
	if keysParam := query.Get("keys"); keysParam != "" {
		keys = strings.Split(keysParam, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
	}

	attributes := make(map[string]any)
	for key, values := range query {
		if key == "userId" || key == "sessionId" || key == "keys" {
			continue
		}
		if len(values) > 0 {
			attributes[key] = values[0]
		}
	}

	raw := evalcontext.Raw{
		UserID:     query.Get("userId"),
		SessionID:  query.Get("sessionId"),
		Attributes: attributes,
	}
	s.evaluate(w, raw, keys)
}

func (s *Server) evaluate(w http.ResponseWriter, raw evalcontext.Raw, keys []string) {
	ctx := evalcontext.Normalize(raw)
	snap := snapshot.Load()

	results := engine.EvaluateAll(snap.Flags, ctx, keys)
	for _, res := range results {
		telemetry.EvaluationsTotal.WithLabelValues(string(res.Reason)).Inc()
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Flags:       results,
		ETag:        snap.ETag,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleEvaluateOne evaluates a single flag. Unknown keys still return 200
// with a NO_CONFIG degrade result, mirroring what a client SDK would do.
func (s *Server) handleEvaluateOne(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var raw evalcontext.Raw
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
			return
		}
	}
	ctx := evalcontext.Normalize(raw)
	snap := snapshot.Load()

	var result engine.Result
	if fc, ok := snap.Flags[key]; ok {
		result = engine.Evaluate(fc, ctx)
	} else {
		result = engine.MissingFlag(key)
	}
	telemetry.EvaluationsTotal.WithLabelValues(string(result.Reason)).Inc()

	writeJSON(w, http.StatusOK, evaluateOneResponse{
		Result:      result,
		ETag:        snap.ETag,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
