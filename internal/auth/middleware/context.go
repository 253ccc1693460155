package auth

import (
	"context"

	"github.com/quizdeck/quizdeck/internal/identity"
)

type ctxKey struct{}

var ctxKeyUser = ctxKey{}

func WithUser(ctx context.Context, u identity.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the authenticated user, or a zero User when the
// request carried no valid token.
func UserFromContext(ctx context.Context) identity.User {
	if v := ctx.Value(ctxKeyUser); v != nil {
		if u, ok := v.(identity.User); ok {
			return u
		}
	}
	return identity.User{}
}
