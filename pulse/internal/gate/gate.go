// Package gate implements the verification-code check that unlocks
// collection. Codes are compared against a bcrypt hash; the plain code is
// never stored in configuration.
package gate

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCode is accepted when no hash is configured.
const DefaultCode = "250912"

// Checker verifies codes against one bcrypt hash.
type Checker struct {
	hash []byte
}

// New creates a Checker for hash. An empty hash accepts DefaultCode.
func New(hash string) (*Checker, error) {
	if hash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(DefaultCode), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("gate: hash default code: %w", err)
		}
		return &Checker{hash: h}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("gate: invalid code hash: %w", err)
	}
	return &Checker{hash: []byte(hash)}, nil
}

// Verify reports whether code matches. Surrounding whitespace is ignored.
func (c *Checker) Verify(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(code)) == nil
}

// Hash returns the bcrypt hash to configure for code.
func Hash(code string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(code)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("gate: hash: %w", err)
	}
	return string(h), nil
}
