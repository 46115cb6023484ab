// Package auth verifies bearer credentials against the shared token secret.
//
// The gateway never issues tokens; the login service signs HS256 JWTs with
// SHARED_TOKEN_SECRET and this package only checks them and extracts the
// subject. A credential failure never reveals why verification failed.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// ErrMissingToken is returned when the Authorization header is absent or not
// of the form "Bearer <token>".
var ErrMissingToken = errors.New("Missing bearer token in Authorization header")

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("Invalid token")

// Identity is the authenticated caller.
type Identity struct {
	Subject string
}

// Verifier validates bearer tokens with a shared HS256 secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type tokenClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Verify checks the raw token and returns the caller identity.
func (v *Verifier) Verify(raw string) (Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Subject: claims.UserID}, nil
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, param, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || param == "" {
		return "", ErrMissingToken
	}
	return param, nil
}
