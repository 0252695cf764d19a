package webchat

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSessionID mints a random 32-character hex session identifier. Session
// ids only correlate requests; they carry no authentication weight.
func NewSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b)
}
