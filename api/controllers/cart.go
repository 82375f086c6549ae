package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/api/middleware"
	"github.com/jdupreez/veemark-gateway/api/responses"
	"github.com/jdupreez/veemark-gateway/api/validators"
	cartsvc "github.com/jdupreez/veemark-gateway/internal/cart"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
)

// CartGet returns the guest's priced cart.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		view, err := svc.GetCart(r.Context(), middleware.GuestTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

type putCartRequest struct {
	Items []putCartItem `json:"items" validate:"dive"`
}

type putCartItem struct {
	ListingID      uuid.UUID `json:"listing_id" validate:"required"`
	Title          string    `json:"title" validate:"required,max=200"`
	Qty            int       `json:"qty" validate:"required,min=1"`
	Unit           string    `json:"unit" validate:"required"`
	UnitPriceMinor int64     `json:"unit_price_minor" validate:"required,gt=0"`
}

// CartPut replaces the guest's cart with the submitted items and returns the
// re-priced view.
func CartPut(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload putCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.PutCart(r.Context(), middleware.GuestTokenFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// CartClear drops the guest's cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := svc.ClearCart(r.Context(), middleware.GuestTokenFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

func (r putCartRequest) toInput() (cartsvc.PutCartInput, error) {
	items := make([]cartsvc.CartItemInput, len(r.Items))
	for i, payload := range r.Items {
		unit, err := enums.ParseQuantityUnit(payload.Unit)
		if err != nil {
			return cartsvc.PutCartInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
		}
		items[i] = cartsvc.CartItemInput{
			ListingID:      payload.ListingID,
			Title:          payload.Title,
			Quantity:       payload.Qty,
			Unit:           unit,
			UnitPriceMinor: payload.UnitPriceMinor,
		}
	}
	return cartsvc.PutCartInput{Items: items}, nil
}
