// Package token generates session tokens for attendance beacons.
package token

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Alphabet is the 33-symbol token alphabet. 0, O and I are excluded so tokens
// survive being read aloud or retyped.
const Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Length is the token length in characters.
const Length = 12

// maxAttempts bounds retries when a candidate collides with an active token.
const maxAttempts = 10

// ErrGenerationExhausted is returned when every candidate collided with the
// active-token set. The caller should abort and let the request be retried.
var ErrGenerationExhausted = errors.New("token generation exhausted after repeated collisions")

// Generate draws a 12-character token uniformly at random from Alphabet,
// retrying while the candidate collides with active (tokens of currently
// non-expired sessions). Purely functional given the set; the storage layer's
// own active-uniqueness guard remains the source of truth under concurrency.
func Generate(active map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := random()
		if err != nil {
			return "", err
		}
		if _, taken := active[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", ErrGenerationExhausted
}

func random() (string, error) {
	n := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		buf[i] = Alphabet[idx.Int64()]
	}
	return string(buf), nil
}

// Valid reports whether s is a well-formed token: exactly Length characters,
// all drawn from Alphabet.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !inAlphabet(s[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	switch {
	case c >= '1' && c <= '9':
		return true
	case c >= 'A' && c <= 'Z':
		return c != 'I' && c != 'O'
	default:
		return false
	}
}
