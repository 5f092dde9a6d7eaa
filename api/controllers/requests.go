package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/acertamais-backend/api/middleware"
	"github.com/angelmondragon/acertamais-backend/api/responses"
	"github.com/angelmondragon/acertamais-backend/api/validators"
	"github.com/angelmondragon/acertamais-backend/internal/employees"
	"github.com/angelmondragon/acertamais-backend/internal/requests"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/pagination"
)

// DisplayNamer resolves the name stored on a submitted request.
type DisplayNamer interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// RequestsSubmit turns the caller's cart into a pending request. The
// Idempotency-Key header doubles as the request's idempotency key so a
// retried submission returns the original request.
func RequestsSubmit(svc requests.Service, names DisplayNamer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("request"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clientName, err := clientName(r, names, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), requests.SubmitInput{
			ClientID:       userID,
			ClientName:     clientName,
			IdempotencyKey: r.Header.Get(middleware.IdempotencyHeader),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func clientName(r *http.Request, names DisplayNamer, userID string) (string, error) {
	fromToken := strings.TrimSpace(middleware.DisplayNameFromContext(r.Context()))
	if names == nil {
		if fromToken == "" {
			return employees.DefaultDisplayName, nil
		}
		return fromToken, nil
	}
	name, err := names.DisplayName(r.Context(), userID)
	if err != nil {
		return "", err
	}
	if name == employees.DefaultDisplayName && fromToken != "" {
		return fromToken, nil
	}
	return name, nil
}

func RequestsPending(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("request"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := svc.ListPending(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// RequestsHistory pages the caller's requests of ?status= (confirmed by
// default) with ?cursor= and ?limit=.
func RequestsHistory(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("request"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		status := enums.RequestStatus(strings.TrimSpace(query.Get("status")))
		page, err := svc.History(r.Context(), userID, status, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func RequestsGet(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("request"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParsePathUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), userID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// RequestsCancel cancels a pending request. Cancelling twice is not an error;
// a confirmed request answers 422 STATE_CONFLICT.
func RequestsCancel(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("request"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParsePathUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Cancel(r.Context(), userID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
