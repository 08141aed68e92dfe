package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewToken returns a random hex token suitable for refresh tokens.
func NewToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
