package models

// StateMap is an opaque key-value blob for story and session state. It is
// stored as a JSON column and replaced wholesale; there are no merge semantics.
type StateMap map[string]any

// Clone returns a shallow copy. A nil map clones to an empty one, so callers
// always get a usable map back.
func (m StateMap) Clone() StateMap {
	out := make(StateMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
