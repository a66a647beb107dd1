package utils

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// GenerateState produces the random hex token used as the anti-CSRF state in
// authorization flows.
func GenerateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
