package auth

import (
	"context"
	"strings"
	"testing"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("a_long_enough_test_secret", "account-service")

	token, err := verifier.GenerateToken("alice", time.Hour)
	req.NoError(err)

	userID, err := verifier.Verify(token)
	req.NoError(err)
	req.Equal(domain.UserID("alice"), userID)
}

func TestVerifier_Rejects(t *testing.T) {
	verifier := NewVerifier("a_long_enough_test_secret", "account-service")
	expired := NewVerifier("a_long_enough_test_secret", "account-service")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	otherIssuer := NewVerifier("a_long_enough_test_secret", "someone-else")
	otherSecret := NewVerifier("another_secret_entirely", "account-service")

	sign := func(v *Verifier, userID domain.UserID) string {
		token, err := v.GenerateToken(userID, time.Hour)
		require.NoError(t, err)
		return token
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: sign(expired, "alice")},
		{name: "other issuer", token: sign(otherIssuer, "alice")},
		{name: "other secret", token: sign(otherSecret, "alice")},
		{name: "unsigned", token: none},
		{name: "missing user", token: sign(verifier, "")},
		{name: "user id with separator", token: sign(verifier, "ali:ce")},
		{name: "user id too long", token: sign(verifier, domain.UserID(strings.Repeat("a", 129)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			require.ErrorIs(t, err, errors.ErrUnauthenticated)
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := require.New(t)

	token, err := BearerToken("Bearer abc.def.ghi")
	req.NoError(err)
	req.Equal("abc.def.ghi", token)

	token, err = BearerToken("bearer   xyz ")
	req.NoError(err)
	req.Equal("xyz", token)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, err = BearerToken(header)
		req.ErrorIs(err, errors.ErrUnauthenticated, header)
	}
}

func TestUserIDFromContext(t *testing.T) {
	req := require.New(t)

	_, ok := UserIDFromContext(context.Background())
	req.False(ok)

	userID, ok := UserIDFromContext(WithUserID(context.Background(), "bob"))
	req.True(ok)
	req.Equal(domain.UserID("bob"), userID)
}
