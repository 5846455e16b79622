// Package jurisdiction provides the canonical jurisdiction key shared by
// every stage of the pipeline. Two records that refer to the same real
// city/state locality must normalize to an identical key, so the rules
// here are the single source of truth for join identity.
package jurisdiction

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/taxmap/pkg/errors"
)

// upper performs Unicode-correct uppercasing. City names in the feeds
// occasionally carry accented characters, and the key must not depend on
// which source spelled them. A Caser is stateful, so one is created per
// call rather than shared.
func upper(s string) string {
	return cases.Upper(language.AmericanEnglish).String(s)
}

// Key is the canonical string identity of a jurisdiction:
// uppercased, whitespace-collapsed city + "_" + uppercased 2-letter state.
type Key string

// String returns the string representation of a key.
func (k Key) String() string {
	return string(k)
}

// NormalizeKey builds the canonical join key from a raw city and state pair.
// It trims both inputs, collapses internal whitespace runs in the city to a
// single space, uppercases both, and joins them with "_".
//
// The state must already be a 2-letter postal code; full-name translation is
// the Table's job. NormalizeKey is pure and idempotent:
// NormalizeKey(NormalizeKey(c, s)) yields the same key.
func NormalizeKey(city, state string) (Key, error) {
	c := collapseWhitespace(strings.TrimSpace(city))
	s := strings.TrimSpace(state)

	if c == "" || s == "" {
		return "", errors.NewKeyInputError(city, state)
	}

	return Key(upper(c) + "_" + upper(s)), nil
}

// collapseWhitespace replaces every internal run of whitespace with a
// single space. strings.Fields handles tabs and repeated spaces alike.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
