package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewRandomID returns a new unique id (a uuid4 without dashes).
func NewRandomID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// IsValidID reports whether the given string looks like one of our ids.
func IsValidID(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, r := range s {
		ok := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !ok {
			return false
		}
	}
	return true
}
