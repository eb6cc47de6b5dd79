package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identifier prefixes.
const (
	ActivityIDPrefix   = "act"
	SubmissionIDPrefix = "sub"
	AttachmentIDPrefix = "img"
)

// NewID returns a prefixed random identifier such as "sub-3f0c...".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// ValueOr dereferences v or returns fallback when v is nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
