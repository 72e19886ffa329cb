package users

import "context"

type currentUserKey struct{}

// ContextWithCurrent stores the authenticated user in ctx.
func ContextWithCurrent(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, u)
}

// CurrentFromContext returns the authenticated user, if any.
func CurrentFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(currentUserKey{}).(*User)
	return u, ok && u != nil
}
