// Package snapshot holds the published, immutable view of an environment's
// flag configurations. Updates replace the whole snapshot through one atomic
// pointer swap, so an evaluation in flight always observes a fully
// self-consistent config set, never a half-updated one.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/flagbeam/flagbeam/internal/flags"
)

// Snapshot is one immutable published config set for an environment.
type Snapshot struct {
	ETag        string                      `json:"etag"`
	Environment string                      `json:"environment"`
	Flags       map[string]flags.FlagConfig `json:"flags"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

var current atomic.Pointer[Snapshot]

// Load returns the currently published snapshot. Before the first Update it
// returns an empty snapshot, so callers never see nil.
func Load() *Snapshot {
	if s := current.Load(); s != nil {
		return s
	}
	return &Snapshot{Flags: map[string]flags.FlagConfig{}, UpdatedAt: time.Now().UTC()}
}

// Update publishes a new snapshot and notifies subscribers. The previous
// snapshot stays valid for any evaluation still holding it.
func Update(s *Snapshot) {
	current.Store(s)
	publishUpdate(s.ETag)
}

// Build assembles a snapshot from the store's config records and records
// load-time diagnostics: dangling variation references, undecodable values,
// and invalid regex patterns are logged here, once per configuration load,
// never on the evaluation path.
func Build(env string, configs []flags.FlagConfig, log zerolog.Logger) *Snapshot {
	byKey := make(map[string]flags.FlagConfig, len(configs))
	for _, fc := range configs {
		byKey[fc.Flag.Key] = fc
		for _, diag := range fc.Diagnostics() {
			log.Warn().
				Str("flag", fc.Flag.Key).
				Str("env", env).
				Msg(diag)
		}
	}

	return &Snapshot{
		ETag:        etagFor(byKey),
		Environment: env,
		Flags:       byKey,
		UpdatedAt:   time.Now().UTC(),
	}
}

// etagFor derives a weak ETag from the canonical JSON of the config set.
// Keys are serialized in sorted order so the tag is stable across map
// iteration order.
func etagFor(byKey map[string]flags.FlagConfig) string {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		blob, err := json.Marshal(byKey[k])
		if err != nil {
			continue
		}
		h.Write([]byte(k))
		h.Write(blob)
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)) + `"`
}
