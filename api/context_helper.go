package api

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QueryTimeout is the default timeout for database queries made by REST handlers.
// It is overridden from configuration at startup.
var QueryTimeout = 10 * time.Second

type userIDContextKey struct{}

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// WithUserID stores the authenticated user's id on ctx
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, id)
}

// UserIDFromContext returns the authenticated user's id, if any
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	raw, ok := ctx.Value(userIDContextKey{}).(string)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
