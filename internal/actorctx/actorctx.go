// Package actorctx carries request-scoped identity on a context.Context so
// code below the HTTP layer (the store, the logger) can see it.
package actorctx

import "context"

type ctxKey string

const (
	keyUserID    ctxKey = "user_id"
	keyRequestID ctxKey = "request_id"
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)

	return v, ok && v != ""
}
