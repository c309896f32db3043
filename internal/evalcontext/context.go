// Package evalcontext normalizes raw caller-supplied subject data into the
// canonical form the evaluation engine consumes. Normalization happens once
// per request; the engine never sees raw input.
package evalcontext

import (
	"strings"

	"github.com/google/uuid"
)

// SubjectKind says where the subject identifier came from.
type SubjectKind string

const (
	KindUser      SubjectKind = "user"
	KindSession   SubjectKind = "session"
	KindAnonymous SubjectKind = "anonymous"
)

// IDAttribute is the reserved attribute always set to the resolved subject
// ID. Caller-supplied values under this name are overwritten.
const IDAttribute = "id"

const anonymousPrefix = "anon-"

// Raw is subject data exactly as a caller sent it.
type Raw struct {
	UserID     string         `json:"userId,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Context is the canonical evaluation context. It is immutable once built;
// the engine only reads it.
type Context struct {
	SubjectID  string
	Kind       SubjectKind
	Attributes map[string]any
}

// Normalize resolves the subject identity (user ID wins over session ID;
// with neither, a random anonymous ID is minted) and copies the attribute
// map so later caller mutation cannot leak into evaluation.
func Normalize(raw Raw) Context {
	ctx := Context{}

	switch {
	case strings.TrimSpace(raw.UserID) != "":
		ctx.SubjectID = strings.TrimSpace(raw.UserID)
		ctx.Kind = KindUser
	case strings.TrimSpace(raw.SessionID) != "":
		ctx.SubjectID = strings.TrimSpace(raw.SessionID)
		ctx.Kind = KindSession
	default:
		ctx.SubjectID = anonymousPrefix + uuid.NewString()
		ctx.Kind = KindAnonymous
	}

	ctx.Attributes = make(map[string]any, len(raw.Attributes)+1)
	for k, v := range raw.Attributes {
		ctx.Attributes[k] = v
	}
	ctx.Attributes[IDAttribute] = ctx.SubjectID

	return ctx
}

// Ephemeral reports whether the subject ID was minted rather than supplied.
// Ephemeral subjects get no stable rollout assignment across requests.
func (c Context) Ephemeral() bool {
	return c.Kind == KindAnonymous
}

// Attr looks up an attribute. A literal key match wins; otherwise a dotted
// name walks nested maps ("plan.tier" reads attributes["plan"]["tier"]).
func (c Context) Attr(name string) (any, bool) {
	if v, ok := c.Attributes[name]; ok {
		return v, true
	}

	if !strings.Contains(name, ".") {
		return nil, false
	}

	parts := strings.Split(name, ".")
	var current any = c.Attributes
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
