package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

// Authentication outcomes. The messages are sent to the remote side as-is.
var (
	ErrMissingToken     = errors.New("missing token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrMalformedPayload = errors.New("malformed token payload")
	ErrUnknownSubject   = errors.New("unknown subject")
)

// Authenticator resolves a bearer token to the user it was issued for. It never
// looks at what the caller is trying to reach.
type Authenticator struct {
	Tokens *Tokens
	Users  databases.UserDatabase
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(tokens *Tokens, users databases.UserDatabase) *Authenticator {
	return &Authenticator{Tokens: tokens, Users: users}
}

// Authenticate verifies token and loads the user record behind it
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := a.Tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	subject := claims.SubjectID()
	if subject == "" {
		return nil, ErrMalformedPayload
	}

	userID, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return nil, ErrUnknownSubject
	}

	user, err := a.Users.FindByID(ctx, userID)
	if errors.Is(err, databases.ErrNotFound) {
		return nil, ErrUnknownSubject
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}
	return user, nil
}

// RejectionReason returns the text of the authentication outcome err wraps, without
// the underlying cause. It returns "" when err is not a rejection.
func RejectionReason(err error) string {
	for _, outcome := range []error{ErrMissingToken, ErrInvalidToken, ErrMalformedPayload, ErrUnknownSubject} {
		if errors.Is(err, outcome) {
			return outcome.Error()
		}
	}
	return ""
}

// TokenFromRequest reads the token from the "token" query parameter, falling back
// to an "Authorization: Bearer" header. Browsers cannot set headers on websocket
// handshakes, hence the query parameter.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
