package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	guardian "github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/interview-chat-api/auth"
	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

// tokenCacheTTL bounds how long a bearer token's user lookup is trusted. Signature
// and expiry are still checked on every request.
const tokenCacheTTL = 5 * time.Minute

// Guard authenticates REST callers. Basic credentials are only good for minting a
// token; everything else expects that token as a bearer.
type Guard struct {
	Users         databases.UserDatabase
	Tokens        *auth.Tokens
	Authenticator *auth.Authenticator

	authenticator guardian.Authenticator
}

// NewGuard creates a Guard with the basic and cached bearer strategies enabled
func NewGuard(users databases.UserDatabase, tokens *auth.Tokens, authenticator *auth.Authenticator) *Guard {
	g := &Guard{Users: users, Tokens: tokens, Authenticator: authenticator}
	g.SetupGoGuardian()
	return g
}

// SetupGoGuardian sets up the go-guardian strategies
func (g *Guard) SetupGoGuardian() {
	g.authenticator = guardian.New()
	cache := store.NewFIFO(context.Background(), tokenCacheTTL)
	basicStrategy := basic.New(g.ValidateUser, cache)
	tokenStrategy := bearer.New(g.ValidateToken, cache)

	g.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{
		Success: false,
		Error:   "unauthorized",
		Code:    "UNAUTHORIZED",
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), true
}

// Middleware rejects requests without valid credentials and records the caller's
// user id on the request context
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// expiry is checked on every request, the cache only spares the user lookup
		if token, ok := bearerToken(r); ok {
			if _, err := g.Tokens.Verify(token); err != nil {
				zap.S().Infow("unauthorized",
					"url", r.URL.Path,
					"error", err)
				writeUnauthorized(w)
				return
			}
		}

		info, err := g.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Infow("unauthorized",
				"url", r.URL.Path,
				"error", err)
			writeUnauthorized(w)
			return
		}
		zap.S().Debugw("user authenticated", "userId", info.ID())
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), info.ID())))
	})
}

// ValidateUser checks an email and password pair against the users collection
func (g *Guard) ValidateUser(ctx context.Context, _ *http.Request, email, password string) (guardian.Info, error) {
	user, err := g.Users.FindByEmail(ctx, email)
	if errors.Is(err, databases.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return guardian.NewDefaultUser(user.Email, user.ID.Hex(), []string{user.Role}, nil), nil
}

// ValidateToken resolves a bearer token the same way the chat gateway does
func (g *Guard) ValidateToken(ctx context.Context, _ *http.Request, token string) (guardian.Info, error) {
	user, err := g.Authenticator.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return guardian.NewDefaultUser(user.Email, user.ID.Hex(), []string{user.Role}, nil), nil
}

// TokenResponse is returned by CreateToken
type TokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"_id"`
	ExpiresAt int64  `json:"expiresAt"`
}

// CreateToken returns a signed access token for the authenticated caller. It sits
// behind Middleware, so basic credentials or a still-valid token both work.
func (g *Guard) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	token, err := g.Tokens.Issue(userID)
	if err != nil {
		zap.S().Errorw("failed to issue token", "userId", userID.Hex(), "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "failed to issue token", Code: "INTERNAL_ERROR"})
		return
	}

	claims, err := g.Tokens.Verify(token)
	if err != nil {
		zap.S().Errorw("issued token does not verify", "userId", userID.Hex(), "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "failed to issue token", Code: "INTERNAL_ERROR"})
		return
	}

	_ = json.NewEncoder(w).Encode(TokenResponse{
		Token:     token,
		UserID:    userID.Hex(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}
