package auth

import (
	"fmt"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the Account Service puts inside its tokens.
type Claims struct {
	UserID string `json:"user_id" validate:"required,max=128,excludes=:"`
	jwt.RegisteredClaims
}

// Verifier checks tokens issued by the Account Service.
// The chat core trusts the identity it extracts and never authenticates users itself.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// GenerateToken signs a token for userID. Used by tools and tests, the real
// tokens come from the Account Service.
func (v *Verifier) GenerateToken(userID domain.UserID, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses the token, checks signature, expiry and issuer, and returns the caller identity.
func (v *Verifier) Verify(tokenString string) (domain.UserID, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, options...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: %v", errors.ErrUnauthenticated, jwt.ErrSignatureInvalid)
	}
	if err = ValidateClaims(claims); err != nil {
		return "", err
	}
	return domain.UserID(claims.UserID), nil
}
