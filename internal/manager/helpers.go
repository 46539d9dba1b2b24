package manager

import (
	"strings"

	"github.com/google/uuid"
)

// NewLogID returns a fresh request log id.
func NewLogID() string { return uuid.NewString() }

// ResolveLogID returns the caller-supplied id when present, otherwise a new
// one. supplied reports which case applied.
func ResolveLogID(given string) (id string, supplied bool) {
	if s := strings.TrimSpace(given); s != "" {
		return s, true
	}
	return NewLogID(), false
}
