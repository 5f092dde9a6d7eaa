package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/acertamais-backend/pkg/auth"
)

type callerKey struct{}

// WithIdentity stores the verified caller on ctx.
func WithIdentity(ctx context.Context, id pkgAuth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, id)
}

// IdentityFromContext returns the caller seeded by Auth.
func IdentityFromContext(ctx context.Context) (pkgAuth.Identity, bool) {
	if ctx == nil {
		return pkgAuth.Identity{}, false
	}
	id, ok := ctx.Value(callerKey{}).(pkgAuth.Identity)
	return id, ok
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

// DisplayNameFromContext returns the name carried by the caller's token, if any.
func DisplayNameFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.DisplayName
}

func WithUserID(ctx context.Context, userID string) context.Context {
	id, _ := IdentityFromContext(ctx)
	id.UserID = userID
	return WithIdentity(ctx, id)
}

func WithDisplayName(ctx context.Context, name string) context.Context {
	id, _ := IdentityFromContext(ctx)
	id.DisplayName = name
	return WithIdentity(ctx, id)
}
