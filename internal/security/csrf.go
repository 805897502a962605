package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

const (
	// CSRFFormField is the hidden form field carrying the token
	CSRFFormField = "csrf_token"
	// CSRFHeader is accepted instead of the form field for fetch requests
	CSRFHeader = "X-CSRF-Token"
)

var errNoSession = errors.New("session id is required")

// CSRF derives form tokens from the session id with HMAC-SHA256, so every
// replica can check a token without shared state.
type CSRF struct {
	secret []byte
}

func NewCSRF(secret string) *CSRF {
	return &CSRF{secret: []byte(secret)}
}

// Token returns the token for a session
func (c *CSRF) Token(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errNoSession
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte("csrf:" + sessionID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Valid reports whether token belongs to sessionID
func (c *CSRF) Valid(sessionID, token string) bool {
	if token == "" {
		return false
	}
	expected, err := c.Token(sessionID)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(token))
}
