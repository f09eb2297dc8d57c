// Package validation checks user-supplied names before they reach storage.
// Secret names end up as keyring account names and tags end up in exported
// documents, so both are limited to a portable character set.
package validation

import "fmt"

// MaxIdentifierLength bounds secret names and tags
const MaxIdentifierLength = 64

// IsValidIdentifierChar checks if a character is valid for identifiers
// (alphanumeric, hyphen, or underscore).
func IsValidIdentifierChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_'
}

// ValidateIdentifier returns an error naming what (e.g. "secret name") when
// id is empty, too long, does not start with a letter or contains a
// character outside [A-Za-z0-9_-].
func ValidateIdentifier(what, id string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("%s %q is longer than %d characters", what, id, MaxIdentifierLength)
	}
	first := rune(id[0])
	if !(first >= 'a' && first <= 'z') && !(first >= 'A' && first <= 'Z') {
		return fmt.Errorf("%s %q must start with a letter", what, id)
	}
	for _, ch := range id {
		if !IsValidIdentifierChar(ch) {
			return fmt.Errorf("%s %q contains invalid character %q (use letters, digits, - and _)", what, id, ch)
		}
	}
	return nil
}
