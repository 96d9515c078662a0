package grpcserver

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/totp-keeper/internal/model"
)

type originatorKey struct{}

// WithOriginator stores the authenticated caller and its address in context.
func WithOriginator(ctx context.Context, by model.Originator) context.Context {
	return context.WithValue(ctx, originatorKey{}, by)
}

// OriginatorFromCtx fetches the caller stored by AuthUnary.
func OriginatorFromCtx(ctx context.Context) (model.Originator, bool) {
	by, ok := ctx.Value(originatorKey{}).(model.Originator)
	if !ok || by.UserID == uuid.Nil {
		return model.Originator{}, false
	}
	return by, true
}

// UserIDFromCtx fetches the caller's user ID from context.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	by, ok := OriginatorFromCtx(ctx)
	return by.UserID, ok
}
