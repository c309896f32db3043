package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagbeam/flagbeam/internal/flags"
)

func configFixture(key string) flags.FlagConfig {
	return flags.FlagConfig{
		Flag: flags.Flag{
			Key:    key,
			Type:   flags.TypeBoolean,
			Status: flags.StatusActive,
			Variations: []flags.Variation{
				{Key: "on", Value: json.RawMessage(`true`)},
				{Key: "off", Value: json.RawMessage(`false`)},
			},
		},
		Config: &flags.EnvironmentConfig{
			Environment:         "prod",
			Enabled:             true,
			DefaultVariationKey: "off",
		},
	}
}

func TestBuild_ETagStability(t *testing.T) {
	log := zerolog.Nop()
	a := Build("prod", []flags.FlagConfig{configFixture("a"), configFixture("b")}, log)
	b := Build("prod", []flags.FlagConfig{configFixture("b"), configFixture("a")}, log)

	assert.Equal(t, a.ETag, b.ETag, "etag must not depend on input order")
	assert.Contains(t, a.ETag, `W/"`)

	changed := configFixture("a")
	changed.Config.Enabled = false
	c := Build("prod", []flags.FlagConfig{changed, configFixture("b")}, log)
	assert.NotEqual(t, a.ETag, c.ETag, "config change must change the etag")
}

func TestLoadBeforeUpdate(t *testing.T) {
	s := Load()
	require.NotNil(t, s)
	assert.Empty(t, s.Flags)
}

func TestUpdateAndSubscribe(t *testing.T) {
	ch, unsub := Subscribe()
	defer unsub()

	s := Build("prod", []flags.FlagConfig{configFixture("a")}, zerolog.Nop())
	Update(s)

	assert.Same(t, s, Load())

	select {
	case etag := <-ch:
		assert.Equal(t, s.ETag, etag)
	case <-time.After(time.Second):
		t.Fatal("no snapshot notification received")
	}
}

func TestPublishSkipsSlowSubscribers(t *testing.T) {
	ch, unsub := Subscribe()
	defer unsub()

	// Fill the buffered channel; further publishes must not block.
	Update(Build("prod", []flags.FlagConfig{configFixture("a")}, zerolog.Nop()))
	done := make(chan struct{})
	go func() {
		Update(Build("prod", []flags.FlagConfig{configFixture("b")}, zerolog.Nop()))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	<-ch // drain
}
