// Package idgen provides short unique identifiers backed by nanoid: numeric
// student identifiers for synthetic records and URL-safe keys for objects
// written by the relay.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated key.
var DefaultPrefix = "rly-"

// Alphabet defines the character set used for the random portion of a key.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// StudentIDLength is the number of digits in a generated student identifier.
const StudentIDLength = 6

const (
	leadingDigits = "123456789"
	digits        = "0123456789"
)

// Generate returns a new unique key using the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new unique key with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// StudentID returns a six-digit decimal identifier in 100000..999999.
func StudentID() (string, error) {
	head, err := nanoid.Generate(leadingDigits, 1)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	tail, err := nanoid.Generate(digits, StudentIDLength-1)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return head + tail, nil
}
