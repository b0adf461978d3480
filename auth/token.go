package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Claims is the payload carried by access tokens. ID is the user id; tokens minted
// elsewhere may only carry the registered "sub" claim, which is used as a fallback.
type Claims struct {
	ID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id carried by the token, or "" when there is none
func (c *Claims) SubjectID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Subject
}

// Tokens signs and verifies HS256 access tokens with a server-held secret
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokens creates a token signer/verifier
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "interview-chat-api",
	}
}

// Issue creates a signed token for the given user
func (t *Tokens) Issue(userID primitive.ObjectID) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID: userID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.Hex(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and checks its signature and expiry. Every failure is
// reported as ErrInvalidToken; the cause is kept in the chain for logging only.
func (t *Tokens) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
