package bucketing

// Vector is one conformance entry for cross-implementation testing: a port
// of this contract must produce the same Bucket for the same Scope and
// SubjectID.
type Vector struct {
	Scope     string `json:"scope"`
	SubjectID string `json:"subjectId"`
	Bucket    int    `json:"bucket"`
}

// vectorInputs are fixed; adding entries is allowed, changing or removing
// them is a contract break.
var vectorInputs = []struct {
	scope     string
	subjectID string
}{
	{"checkout_redesign", "user-1"},
	{"checkout_redesign", "user-2"},
	{"checkout_redesign", "alice@example.com"},
	{"checkout_redesign:beta-testers", "user-1"},
	{"new_pricing", "user-1"},
	{"new_pricing", "anon-4f9d2c18"},
	{"dark_mode", "session-8842"},
	{"dark_mode", ""},
	{"", "user-1"},
	{"flag:with:colons", "user:with:colons"},
}

// Vectors returns the conformance vectors with buckets computed by this
// implementation. Serialize them to share with ports in other languages.
func Vectors() []Vector {
	out := make([]Vector, len(vectorInputs))
	for i, in := range vectorInputs {
		out[i] = Vector{
			Scope:     in.scope,
			SubjectID: in.subjectID,
			Bucket:    Bucket(in.scope, in.subjectID),
		}
	}
	return out
}
