// Package api exposes the HTTP surface: public snapshot and evaluation
// endpoints, an SSE update stream, and token-protected admin endpoints for
// flag configuration.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/flagbeam/flagbeam/internal/auth"
	"github.com/flagbeam/flagbeam/internal/flags"
	"github.com/flagbeam/flagbeam/internal/snapshot"
	"github.com/flagbeam/flagbeam/internal/store"
	"github.com/flagbeam/flagbeam/internal/telemetry"
	"github.com/flagbeam/flagbeam/internal/validation"
)

type Server struct {
	store       store.Store
	env         string
	adminAPIKey string
	log         zerolog.Logger
}

func NewServer(st store.Store, env, adminKey string, log zerolog.Logger) *Server {
	return &Server{store: st, env: env, adminAPIKey: adminKey, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// The stream route holds its connection open, so the request timeout
	// covers everything except it.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))

		r.Get("/v1/flags/snapshot", s.handleSnapshot)

		r.Post("/v1/evaluate", s.handleEvaluate)
		r.Get("/v1/evaluate", s.handleEvaluateGET)
		r.Post("/v1/evaluate/{key}", s.handleEvaluateOne)

		r.Post("/v1/flags", s.authAdmin(s.handleUpsertFlag))
		r.Get("/v1/flags/{key}", s.authAdmin(s.handleGetFlag))
		r.Delete("/v1/flags/{key}", s.authAdmin(s.handleDeleteFlag))
	})

	r.Get("/v1/flags/stream", s.handleStream)

	return r
}

// handleSnapshot serves the current snapshot with a weak ETag for cheap
// client-side polling.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := snapshot.Load()
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", snap.ETag)
	writeJSON(w, http.StatusOK, snap)
}

type upsertRequest struct {
	Flag   flags.Flag              `json:"flag"`
	Config flags.EnvironmentConfig `json:"config"`
}

type upsertResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

func (s *Server) handleUpsertFlag(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}

	if strings.TrimSpace(req.Config.Environment) == "" {
		req.Config.Environment = s.env
	}

	if result := validation.ValidateUpsert(req.Flag.Key, req.Config.Environment, req.Flag.Variations); !result.Valid {
		writeErrorFields(w, r, http.StatusBadRequest, ErrCodeValidation, "invalid flag", result.Errors)
		return
	}

	params := store.UpsertParams{Flag: req.Flag, Config: req.Config}
	if err := params.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if err := s.store.UpsertConfig(r.Context(), params); err != nil {
		s.log.Error().Err(err).Str("key", req.Flag.Key).Msg("flag upsert failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "store upsert failed")
		return
	}

	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("snapshot rebuild failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "snapshot rebuild failed")
		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{OK: true, ETag: snapshot.Load().ETag})
}

func (s *Server) handleGetFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	env := r.URL.Query().Get("env")
	if env == "" {
		env = s.env
	}

	fc, err := s.store.GetConfig(r.Context(), env, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "flag not found")
			return
		}
		s.log.Error().Err(err).Str("key", key).Msg("flag lookup failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "store lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (s *Server) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	env := r.URL.Query().Get("env")
	if env == "" {
		env = s.env
	}

	if err := s.store.DeleteConfig(r.Context(), env, key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("flag delete failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "store delete failed")
		return
	}
	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("snapshot rebuild failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "snapshot rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, upsertResponse{OK: true, ETag: snapshot.Load().ETag})
}

// RebuildSnapshot loads the server's environment from the store and swaps
// the atomic snapshot.
func (s *Server) RebuildSnapshot(ctx context.Context) error {
	configs, err := s.store.GetAllConfigs(ctx, s.env)
	if err != nil {
		return err
	}
	snap := snapshot.Build(s.env, configs, s.log)
	snapshot.Update(snap)
	telemetry.SnapshotFlags.Set(float64(len(snap.Flags)))
	return nil
}

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
			return
		}
		if !auth.VerifyAPIKeyConstantTime(token, s.adminAPIKey) {
			writeError(w, r, http.StatusForbidden, ErrCodeForbidden, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
