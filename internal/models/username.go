package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/secure/precis"
)

// CanonicalUsername folds a username into the PRECIS UsernameCaseMapped form it is
// stored and looked up in, so "Alice" and "alice" name the same account.
func CanonicalUsername(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("username is empty")
	}
	canonical, err := precis.UsernameCaseMapped.String(raw)
	if err != nil {
		return "", fmt.Errorf("username %q: %w", raw, err)
	}
	return canonical, nil
}
