package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/api/responses"
	"github.com/jdupreez/veemark-gateway/api/validators"
	"github.com/jdupreez/veemark-gateway/internal/negotiation"
	"github.com/jdupreez/veemark-gateway/internal/upstream"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

// OfferClient covers the upstream calls the offer handlers make.
type OfferClient interface {
	GetBuyRequest(ctx context.Context, buyRequestID uuid.UUID) (*types.BuyRequest, error)
	ListOffers(ctx context.Context, buyRequestID uuid.UUID, now time.Time) ([]types.Offer, error)
	CreateOffer(ctx context.Context, buyRequestID uuid.UUID, req upstream.CreateOfferRequest) (*types.Offer, error)
	AcceptOffer(ctx context.Context, buyRequestID, offerID uuid.UUID, idempotencyKey string, req upstream.AcceptOfferRequest) (*upstream.AcceptOfferResponse, error)
}

// ListOffers returns the buy request's offers with stale pending statuses
// already projected to expired.
func ListOffers(upstreamClient OfferClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if upstreamClient == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}

		buyRequestID, err := validators.ParseUUIDParam(r, "buyRequestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBuyRequestID(ctx, buyRequestID.String())
		}

		offers, err := upstreamClient.ListOffers(ctx, buyRequestID, time.Now())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"offers": offers})
	}
}

type createOfferRequest struct {
	Qty              int     `json:"qty" validate:"required,min=1"`
	UnitPriceMinor   int64   `json:"unit_price_minor" validate:"required,gt=0"`
	DeliveryMode     string  `json:"delivery_mode" validate:"required,oneof=SELLER RFQ"`
	AbattoirFeeMinor int64   `json:"abattoir_fee_minor" validate:"min=0"`
	ValidityDays     int     `json:"validity_days" validate:"required,min=1,max=30"`
	Notes            *string `json:"notes" validate:"omitempty,max=500"`
}

// CreateOffer validates the seller's proposal locally, then submits it with
// the expiry instant the engine computed so server and gateway agree on the
// validity window.
func CreateOffer(upstreamClient OfferClient, engine *negotiation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if upstreamClient == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}

		buyRequestID, err := validators.ParseUUIDParam(r, "buyRequestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParseDeliveryMode(payload.DeliveryMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery mode"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBuyRequestID(ctx, buyRequestID.String())
		}

		buyRequest, err := upstreamClient.GetBuyRequest(ctx, buyRequestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		offer, err := engine.SubmitOffer(ctx, negotiation.SubmitOfferInput{
			BuyRequest:       *buyRequest,
			SellerID:         sellerID,
			Quantity:         payload.Qty,
			UnitPriceMinor:   payload.UnitPriceMinor,
			DeliveryMode:     mode,
			AbattoirFeeMinor: payload.AbattoirFeeMinor,
			ValidityDays:     payload.ValidityDays,
			Notes:            payload.Notes,
		}, time.Now())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := upstreamClient.CreateOffer(ctx, buyRequestID, upstream.CreateOfferRequest{
			Qty:               offer.Quantity,
			UnitPriceMinor:    offer.UnitPriceMinor,
			DeliveryMode:      offer.DeliveryMode,
			AbattoirFeeMinor:  offer.AbattoirFeeMinor,
			ValidityExpiresAt: offer.ValidityExpiresAt,
			Notes:             offer.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

type acceptOfferRequest struct {
	AddressID  uuid.UUID `json:"address_id" validate:"required"`
	DistanceKm *float64  `json:"distance_km" validate:"omitempty,gte=0,lte=3000"`
}

type acceptOfferResponse struct {
	OrderGroupID    uuid.UUID   `json:"order_group_id"`
	Offer           types.Offer `json:"offer"`
	SubtotalMinor   int64       `json:"subtotal_minor"`
	FeeMinor        int64       `json:"fee_minor"`
	ShippingMinor   int64       `json:"shipping_minor"`
	AbattoirMinor   int64       `json:"abattoir_minor"`
	GrandTotalMinor int64       `json:"grand_total_minor"`
	GrandTotalRand  string      `json:"grand_total_rand"`
}

// AcceptOffer runs the engine's acceptance transition as a gate, then
// forwards the acceptance upstream with the caller's Idempotency-Key so a
// replayed request can never create a second order group.
func AcceptOffer(upstreamClient OfferClient, engine *negotiation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if upstreamClient == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}

		buyRequestID, err := validators.ParseUUIDParam(r, "buyRequestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := validators.ParseUUIDParam(r, "offerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if idempotencyKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}

		var payload acceptOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBuyRequestID(ctx, buyRequestID.String())
			ctx = logg.WithOfferID(ctx, offerID.String())
		}

		now := time.Now()
		offers, err := upstreamClient.ListOffers(ctx, buyRequestID, now)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offer, found := findOffer(offers, offerID)
		if !found {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found"))
			return
		}

		accepted, err := engine.AcceptOffer(ctx, offer, payload.DistanceKm, now)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := upstreamClient.AcceptOffer(ctx, buyRequestID, offerID, idempotencyKey, upstream.AcceptOfferRequest{
			Qty:          offer.Quantity,
			AddressID:    payload.AddressID,
			DeliveryMode: offer.DeliveryMode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, acceptOfferResponse{
			OrderGroupID:    result.OrderGroupID,
			Offer:           accepted.Offer,
			SubtotalMinor:   accepted.SubtotalMinor,
			FeeMinor:        accepted.FeeMinor,
			ShippingMinor:   accepted.ShippingMinor,
			AbattoirMinor:   accepted.AbattoirMinor,
			GrandTotalMinor: accepted.GrandTotalMinor,
			GrandTotalRand:  types.FormatRand(accepted.GrandTotalMinor),
		})
	}
}

func findOffer(offers []types.Offer, offerID uuid.UUID) (types.Offer, bool) {
	for _, offer := range offers {
		if offer.ID == offerID {
			return offer, true
		}
	}
	return types.Offer{}, false
}
