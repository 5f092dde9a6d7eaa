package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/firestore"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier accepts ID tokens issued by Firebase Authentication, which
// is what the mobile app signs in with.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier initializes a Firebase app for the configured project.
func NewFirebaseVerifier(ctx context.Context, gcp config.GCPConfig) (*FirebaseVerifier, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errors.New("gcp project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: gcp.ProjectID}, firestore.ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if v == nil || v.client == nil {
		return nil, errors.New("firebase verifier not initialized")
	}
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	identity := &Identity{UserID: decoded.UID}
	if name, ok := decoded.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	return identity, nil
}

// NewVerifier picks the verifier for the configured auth provider.
func NewVerifier(ctx context.Context, cfg *config.Config) (Verifier, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderFirebase:
		return NewFirebaseVerifier(ctx, cfg.GCP)
	case config.AuthProviderJWT, "":
		return NewJWTVerifier(cfg.JWT), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.Auth.Provider)
	}
}
