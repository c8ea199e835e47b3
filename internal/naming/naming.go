// Package naming makes memorable participant ids for the CLI.
package naming

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// ParticipantID returns an id such as "student-sleepy-otter-pixel".
// Format: role-adjective-animal-word.
func ParticipantID(role string) string {
	parts := []string{
		pick(adjectives),
		pick(animals),
		pick(randomWords),
	}
	if role != "" {
		parts = append([]string{role}, parts...)
	}
	return strings.Join(parts, "-")
}

func pick(words []string) string {
	return words[randomIndex(len(words))]
}

// randomIndex returns a cryptographically secure random index for a slice
// of the given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic("naming: reading random source: " + err.Error())
	}
	return int(n.Int64())
}
