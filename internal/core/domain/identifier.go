package domain

import "regexp"

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// IsValidIdentifier reports whether id is a well-formed account identifier
// (the client's "wallet" string): one or more ASCII letters, digits or underscores.
// The identifier is not authenticated; it only has to be safe to key storage on.
func IsValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}
