package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// accessTokenBytes is the entropy of a single access-request token.
// 32 bytes keeps the tokens unguessable for the lifetime of a record.
const accessTokenBytes = 32

// NewAccessToken returns a fresh unguessable token. The requester and
// validator tokens of a request are two independent calls: knowing one must
// never help deriving the other.
func NewAccessToken() (string, error) {
	buf := make([]byte, accessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating access token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
