// Package idgen generates collection session identifiers.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SessionPrefix marks collection session ids.
const SessionPrefix = "col_"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 UUID v7 strings. They sort by
// creation time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every id produced by gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default produces session ids: "col_" followed by a UUIDv7.
var Default Generator = Prefixed(SessionPrefix, UUIDv7())

// New produces an id using Default.
func New() string {
	return Default()
}

// ParseSession validates a session id and returns its UUID part.
func ParseSession(id string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(id, SessionPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("idgen: %q lacks the %s prefix", id, SessionPrefix)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, fmt.Errorf("idgen: invalid session id %q: %w", id, err)
	}
	return u, nil
}
