package domain

import "context"

type CtxKey string

const (
	KeyAuthUser  CtxKey = "AuthUser"
	KeyRequestID CtxKey = "RequestID"
)

// WithAuthUser stores the authenticated user on ctx.
func WithAuthUser(ctx context.Context, user AuthUser) context.Context {
	return context.WithValue(ctx, KeyAuthUser, user)
}

func AuthUserFromContext(ctx context.Context) (AuthUser, bool) {
	user, ok := ctx.Value(KeyAuthUser).(AuthUser)
	return user, ok
}
