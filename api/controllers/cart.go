package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/acertamais-backend/api/responses"
	"github.com/angelmondragon/acertamais-backend/api/validators"
	cartsvc "github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
)

// CartFetch returns the caller's cart with its total.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Load(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view))
	}
}

type addCartItemRequest struct {
	ServiceID string `json:"service_id" validate:"required"`
}

// CartAddItem adds one unit of a catalog service. A service from a vendor
// other than the cart's answers 409 VENDOR_CONFLICT.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Add(r.Context(), userID, payload.ServiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartItemResponse(*item))
	}
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=9999"`
}

// CartSetQuantity persists a new quantity. Values below one leave the item
// untouched and return it as stored.
func CartSetQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParsePathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetQuantity(r.Context(), userID, itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartItemResponse(*item))
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParsePathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type cartResponse struct {
	Items    []cartItemResponse `json:"items"`
	VendorID string             `json:"vendor_id,omitempty"`
	Total    decimal.Decimal    `json:"total"`
}

type cartItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ServiceID   string          `json:"service_id"`
	VendorID    string          `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	ImageURL    *string         `json:"image_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newCartResponse(view *cartsvc.View) cartResponse {
	items := make([]cartItemResponse, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, newCartItemResponse(item))
	}
	return cartResponse{Items: items, VendorID: view.VendorID, Total: view.Total}
}

func newCartItemResponse(item models.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:          item.ID,
		ServiceID:   item.ServiceID,
		VendorID:    item.VendorID,
		VendorName:  item.VendorName,
		Name:        item.Name,
		Description: item.Description,
		UnitPrice:   item.UnitPrice,
		Quantity:    item.Quantity,
		LineTotal:   cartsvc.LineTotal(item).Round(2),
		ImageURL:    item.ImageURL,
		CreatedAt:   item.CreatedAt,
	}
}
