// Package ids hands out identifiers for search handles, sessions, and
// render jobs.
package ids

import "github.com/google/uuid"

// New returns a fresh random identifier.
func New() string {
	return uuid.New().String()
}

// NewWithPrefix returns a fresh identifier prefixed for readability in
// logs, e.g. "sess-<uuid>".
func NewWithPrefix(prefix string) string {
	return prefix + "-" + uuid.New().String()
}
