package utils

import (
	"regexp"
	"strings"
)

// ThreadIDSeparator joins the two participant IDs of a derived thread ID.
// User IDs may not contain it, so a thread ID splits back into exactly one pair.
const ThreadIDSeparator = "_"

const maxThreadIDLength = 256

var (
	userIDPattern   = regexp.MustCompile(`^[A-Za-z0-9.:@-]+$`)
	threadIDPattern = regexp.MustCompile(`^[A-Za-z0-9.:@-]+_[A-Za-z0-9.:@-]+$`)
)

// DeriveThreadID returns the canonical thread ID for a pair of users. The
// result does not depend on argument order. Callers must reject IDs that fail
// ValidUserID.
func DeriveThreadID(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if b < a {
		a, b = b, a
	}
	return a + ThreadIDSeparator + b
}

// ValidUserID reports whether id can take part in a derived thread ID.
func ValidUserID(id string) bool {
	if id == "" || len(id) > maxThreadIDLength/2 {
		return false
	}
	return userIDPattern.MatchString(id)
}

// ValidThreadID reports whether id has the shape produced by DeriveThreadID.
func ValidThreadID(id string) bool {
	if id == "" || len(id) > maxThreadIDLength {
		return false
	}
	return threadIDPattern.MatchString(id)
}
