package services

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"

	"github.com/google/uuid"
)

// apiKeyBytes is the entropy of an API key; it is hex encoded to twice this length.
const apiKeyBytes = 32

var apiKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NewUserID returns a fresh user id.
func NewUserID() string {
	return "u" + uuid.NewString()
}

// NewMovieID returns a fresh movie id.
func NewMovieID() string {
	return "m" + uuid.NewString()
}

// NewLogID returns a fresh log entry id.
func NewLogID() string {
	return uuid.NewString()
}

// NewAPIKey returns 64 lower-case hex characters from the system CSPRNG.
func NewAPIKey() string {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// IsAPIKey reports whether s has the shape of an API key. It does not
// check that the key exists.
func IsAPIKey(s string) bool {
	return apiKeyPattern.MatchString(s)
}
