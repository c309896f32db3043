package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagbeam/flagbeam/internal/flags"
	"github.com/flagbeam/flagbeam/internal/rules"
	"github.com/flagbeam/flagbeam/internal/store"
)

const testAdminKey = "test-admin-key"

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	srv := NewServer(st, "prod", testAdminKey, zerolog.Nop())
	require.NoError(t, srv.RebuildSnapshot(context.Background()))
	return srv, st
}

func seedFlag(t *testing.T, srv *Server, st store.Store, key string, cfg flags.EnvironmentConfig) {
	t.Helper()
	cfg.Environment = "prod"
	params := store.UpsertParams{
		Flag: flags.Flag{
			Key:    key,
			Type:   flags.TypeBoolean,
			Status: flags.StatusActive,
			Variations: []flags.Variation{
				{Key: "on", Value: json.RawMessage(`true`)},
				{Key: "off", Value: json.RawMessage(`false`)},
			},
		},
		Config: cfg,
	}
	require.NoError(t, st.UpsertConfig(context.Background(), params))
	require.NoError(t, srv.RebuildSnapshot(context.Background()))
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminKey}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv.Router(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestSnapshotEndpoint_ETag(t *testing.T) {
	srv, st := newTestServer(t)
	seedFlag(t, srv, st, "checkout_redesign", flags.EnvironmentConfig{
		Enabled:             true,
		DefaultVariationKey: "off",
	})

	rr := doRequest(t, srv.Router(), http.MethodGet, "/v1/flags/snapshot", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rr = doRequest(t, srv.Router(), http.MethodGet, "/v1/flags/snapshot", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rr.Code)

	rr = doRequest(t, srv.Router(), http.MethodGet, "/v1/flags/snapshot", "", map[string]string{"If-None-Match": `W/"stale"`})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUpsertFlag_Auth(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rr := doRequest(t, router, http.MethodPost, "/v1/flags", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/v1/flags", `{}`,
		map[string]string{"Authorization": "Bearer wrong-key"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpsertFlag_FullCycle(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	before := doRequest(t, router, http.MethodGet, "/v1/flags/snapshot", "", nil).Header().Get("ETag")

	body := `{
		"flag": {
			"key": "new_pricing",
			"type": "boolean",
			"status": "active",
			"variations": [
				{"key": "on", "value": true},
				{"key": "off", "value": false}
			]
		},
		"config": {
			"enabled": true,
			"defaultVariationKey": "off",
			"rules": [{
				"id": "premium",
				"variationKey": "on",
				"conditions": [{"attribute": "tier", "operator": "equals", "value": "premium"}]
			}]
		}
	}`
	rr := doRequest(t, router, http.MethodPost, "/v1/flags", body, adminHeaders())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp upsertResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.NotEqual(t, before, resp.ETag, "upsert must publish a new snapshot")

	// Admin read-back.
	rr = doRequest(t, router, http.MethodGet, "/v1/flags/new_pricing", "", adminHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	// The new flag evaluates immediately.
	rr = doRequest(t, router, http.MethodPost, "/v1/evaluate",
		`{"context": {"userId": "user-1", "attributes": {"tier": "premium"}}}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var eval evaluateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &eval))
	require.Contains(t, eval.Flags, "new_pricing")
	assert.Equal(t, "TARGETING", string(eval.Flags["new_pricing"].Reason))
}

func TestUpsertFlag_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing key", `{"flag": {"type": "boolean"}, "config": {"enabled": true}}`},
		{"bad key characters", `{"flag": {"key": "bad key!"}, "config": {"enabled": true}}`},
		{"rollout out of range", `{
			"flag": {"key": "f", "type": "boolean", "variations": [{"key": "on", "value": true}]},
			"config": {"enabled": true, "defaultVariationKey": "on", "rolloutPercentage": 150}
		}`},
		{"zero-condition rule", `{
			"flag": {"key": "f", "type": "boolean", "variations": [{"key": "on", "value": true}]},
			"config": {"enabled": true, "defaultVariationKey": "on",
				"rules": [{"id": "r1", "variationKey": "on", "conditions": []}]}
		}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodPost, "/v1/flags", tt.body, adminHeaders())
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestGetFlag_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv.Router(), http.MethodGet, "/v1/flags/ghost", "", adminHeaders())
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteFlag(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	seedFlag(t, srv, st, "doomed", flags.EnvironmentConfig{Enabled: true, DefaultVariationKey: "on"})

	rr := doRequest(t, router, http.MethodDelete, "/v1/flags/doomed", "", adminHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/v1/flags/doomed", "", adminHeaders())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Idempotent.
	rr = doRequest(t, router, http.MethodDelete, "/v1/flags/doomed", "", adminHeaders())
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEvaluate_RuleSeeded(t *testing.T) {
	srv, st := newTestServer(t)
	seedFlag(t, srv, st, "checkout_redesign", flags.EnvironmentConfig{
		Enabled:             true,
		DefaultVariationKey: "off",
		Rules: []rules.Rule{{
			ID:           "premium",
			VariationKey: "on",
			Conditions: []rules.Condition{
				{Attribute: "tier", Operator: rules.OpEquals, Value: "premium"},
			},
		}},
	})
	router := srv.Router()

	rr := doRequest(t, router, http.MethodPost, "/v1/evaluate",
		`{"context": {"userId": "user-1", "attributes": {"tier": "premium"}}}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp.Flags, "checkout_redesign")
	res := resp.Flags["checkout_redesign"]
	assert.Equal(t, "TARGETING", string(res.Reason))
	assert.Equal(t, "on", res.VariationKey)
	assert.NotEmpty(t, resp.ETag)
	assert.NotEmpty(t, resp.EvaluatedAt)
}

func TestEvaluateGET_QueryAttributes(t *testing.T) {
	srv, st := newTestServer(t)
	seedFlag(t, srv, st, "checkout_redesign", flags.EnvironmentConfig{
		Enabled:             true,
		DefaultVariationKey: "off",
		Rules: []rules.Rule{{
			ID:           "us-only",
			VariationKey: "on",
			Conditions: []rules.Condition{
				{Attribute: "country", Operator: rules.OpEquals, Value: "US"},
			},
		}},
	})
	router := srv.Router()

	rr := doRequest(t, router, http.MethodGet, "/v1/evaluate?userId=user-1&country=US", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "TARGETING", string(resp.Flags["checkout_redesign"].Reason))

	rr = doRequest(t, router, http.MethodGet, "/v1/evaluate?userId=user-1&country=DE", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "DEFAULT", string(resp.Flags["checkout_redesign"].Reason))
}

func TestEvaluate_KeysFilter(t *testing.T) {
	srv, st := newTestServer(t)
	seedFlag(t, srv, st, "flag_a", flags.EnvironmentConfig{Enabled: true, DefaultVariationKey: "on"})
	seedFlag(t, srv, st, "flag_b", flags.EnvironmentConfig{Enabled: true, DefaultVariationKey: "on"})
	router := srv.Router()

	rr := doRequest(t, router, http.MethodGet, "/v1/evaluate?userId=user-1&keys=flag_a", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Flags, 1)
	assert.Contains(t, resp.Flags, "flag_a")
}

func TestEvaluate_AnonymousContext(t *testing.T) {
	srv, st := newTestServer(t)
	seedFlag(t, srv, st, "flag_a", flags.EnvironmentConfig{Enabled: true, DefaultVariationKey: "on"})
	router := srv.Router()

	rr := doRequest(t, router, http.MethodPost, "/v1/evaluate", `{}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "DEFAULT", string(resp.Flags["flag_a"].Reason))
}

func TestEvaluateOne(t *testing.T) {
	srv, st := newTestServer(t)
	seedFlag(t, srv, st, "checkout_redesign", flags.EnvironmentConfig{
		Enabled:             true,
		DefaultVariationKey: "on",
	})
	router := srv.Router()

	rr := doRequest(t, router, http.MethodPost, "/v1/evaluate/checkout_redesign",
		`{"userId": "user-1"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp evaluateOneResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "checkout_redesign", resp.FlagKey)
	assert.Equal(t, "DEFAULT", string(resp.Reason))

	// Unknown key degrades instead of erroring.
	rr = doRequest(t, router, http.MethodPost, "/v1/evaluate/ghost_flag", `{"userId": "user-1"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "NO_CONFIG", string(resp.Reason))
	assert.Equal(t, false, resp.Value.Any())
}

func TestEvaluate_DisabledFlagDistribution(t *testing.T) {
	srv, st := newTestServer(t)
	seedFlag(t, srv, st, "ramped", flags.EnvironmentConfig{
		Enabled:              true,
		DefaultVariationKey:  "on",
		FallbackVariationKey: "off",
		RolloutPercentage:    intPtr(30),
	})
	router := srv.Router()

	inRollout := 0
	const n = 1000
	for i := 0; i < n; i++ {
		rr := doRequest(t, router, http.MethodGet,
			fmt.Sprintf("/v1/evaluate?userId=user-%d&keys=ramped", i), "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp evaluateResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		if resp.Flags["ramped"].Reason == "ROLLOUT" {
			inRollout++
		}
	}
	assert.InDelta(t, n*30/100, inRollout, n*0.05)
}

func intPtr(i int) *int { return &i }
