// Package suffixgen provides short-suffix generation functionality.
// Generators should be safe for concurrent use.
package suffixgen

import (
	"crypto/rand"
	"errors"
)

const (
	// letterChars is the alphabet for generated suffixes. Digits are
	// excluded so generated suffixes never look like numeric IDs.
	letterChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// GeneratedLength is the fixed length of generated suffixes.
	GeneratedLength = 5
)

// Generator generates link suffixes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// letterGenerator implements Generator using the 52-letter alphabet.
// It is safe for concurrent use.
type letterGenerator struct{}

// NewLetters returns a new letters-only suffix generator.
func NewLetters() Generator {
	return &letterGenerator{}
}

// Generate generates a random letters-only string of the specified length.
func (g *letterGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = letterChars[int(b[i])%len(letterChars)]
	}

	return string(b), nil
}
