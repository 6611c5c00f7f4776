// Package ident validates tenant and table identifiers before they are
// used in namespace-qualified DDL. Everything that ends up inside a
// schema or table name must pass through Validate first.
package ident

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidIdentifier is returned for names outside the allowed grammar.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Identifiers start with a lowercase letter and contain only lowercase
// letters, digits and underscores, 3-63 characters total.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,62}$`)

// Validate checks name against the identifier grammar. The allow-list
// approach removes any injection risk from string-built DDL: a valid
// identifier cannot contain quotes, whitespace or control characters.
func Validate(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q must start with a lowercase letter, contain only lowercase letters, digits and underscores, and be 3-63 characters long", ErrInvalidIdentifier, name)
	}
	return nil
}
