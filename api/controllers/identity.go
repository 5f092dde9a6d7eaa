package controllers

import (
	"net/http"

	"github.com/angelmondragon/acertamais-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
)

func requireUser(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
