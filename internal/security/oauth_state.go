package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// OAuthStateCookie holds the nonce bound into the signed state parameter
const OAuthStateCookie = "oauth_nonce"

var ErrInvalidState = errors.New("invalid oauth state")

type stateClaims struct {
	jwt.RegisteredClaims
	Provider string `json:"prv"`
	Nonce    string `json:"nonce"`
}

// StateSigner issues and checks the OAuth state parameter. The state is a short
// lived HS256 token; its nonce is also stored in a cookie so a state issued to
// one browser cannot be replayed from another.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns the signed state and the nonce to keep in the browser
func (s *StateSigner) Issue(provider string) (state, nonce string, err error) {
	nonce, err = gonanoid.New()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	now := s.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Provider: provider,
		Nonce:    nonce,
	}
	state, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nonce, nil
}

// Verify checks the state signature, expiry, provider and nonce
func (s *StateSigner) Verify(state, provider, nonce string) error {
	if state == "" || nonce == "" {
		return ErrInvalidState
	}
	claims := &stateClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	token, err := parser.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidState
	}
	if claims.Provider != provider || claims.Nonce != nonce {
		return ErrInvalidState
	}
	return nil
}
