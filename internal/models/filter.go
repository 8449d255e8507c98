package models

// MetadataFilter is a metadata predicate over chunk metadata. Multiple fields
// compose with AND: every key must be present with an equal value.
type MetadataFilter map[string]string

// Matches reports whether meta satisfies every field of the filter.
// A nil or empty filter matches everything.
func (f MetadataFilter) Matches(meta map[string]string) bool {
	for k, want := range f {
		if meta[k] != want {
			return false
		}
	}
	return true
}
