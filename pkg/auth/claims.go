package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller. UserID is the identity provider's
// opaque user id; DisplayName may be empty.
type Identity struct {
	UserID      string
	DisplayName string
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// AccessTokenClaims is the JWT issued by this service. The subject carries
// the user id.
type AccessTokenClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
