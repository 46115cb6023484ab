package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-shared-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifier_ValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, testSecret, jwt.MapClaims{"userId": "user-123"})

	id, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-123", id.Subject)
}

func TestVerifier_WrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, "some-other-secret", jwt.MapClaims{"userId": "user-123"})

	_, err := v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_ExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, testSecret, jwt.MapClaims{
		"userId": "user-123",
		"exp":    time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_MissingSubjectClaim(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, testSecret, jwt.MapClaims{"email": "a@b.c"})

	_, err := v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_GarbageToken(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// The error texts go to clients verbatim in the gateway's 403 bodies.
func TestVerifier_ErrorMessages(t *testing.T) {
	assert.Equal(t, "Missing bearer token in Authorization header", ErrMissingToken.Error())
	assert.Equal(t, "Invalid token", ErrInvalidToken.Error())
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc123", want: "abc123"},
		{name: "empty header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
		{name: "scheme only", header: "Bearer", wantErr: true},
		{name: "scheme with empty param", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
