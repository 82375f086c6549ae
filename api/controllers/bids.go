package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/api/middleware"
	"github.com/jdupreez/veemark-gateway/api/responses"
	"github.com/jdupreez/veemark-gateway/api/validators"
	"github.com/jdupreez/veemark-gateway/internal/auction"
	"github.com/jdupreez/veemark-gateway/internal/negotiation"
	"github.com/jdupreez/veemark-gateway/internal/upstream"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

// BidSubmitter covers the upstream calls the bid handler makes.
type BidSubmitter interface {
	GetListing(ctx context.Context, listingID uuid.UUID) (*types.Listing, error)
	PlaceBid(ctx context.Context, listingID uuid.UUID, req upstream.PlaceBidRequest) (*types.Listing, error)
}

type placeBidRequest struct {
	AmountMinor int64  `json:"amount_minor" validate:"required,gt=0"`
	AutoBid     bool   `json:"auto_bid"`
	MaxBidMinor *int64 `json:"max_bid_minor" validate:"omitempty,gt=0"`
}

type placeBidResponse struct {
	Bid                 types.Bid     `json:"bid"`
	Listing             types.Listing `json:"listing"`
	ReserveMet          bool          `json:"reserve_met"`
	MinimumNextBidMinor int64         `json:"minimum_next_bid_minor"`
}

// PlaceBid validates the bid against the engine's local mirror first, then
// submits it upstream. The server's listing in the response is authoritative;
// the local delta is discarded in its favour.
func PlaceBid(upstreamClient BidSubmitter, engine *negotiation.Engine, rules auction.Rules, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if upstreamClient == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		listingID, err := validators.ParseUUIDParam(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bidderID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeBidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithListingID(ctx, listingID.String())
		}

		listing, err := upstreamClient.GetListing(ctx, listingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := engine.SubmitBid(ctx, *listing, bidderID, payload.AmountMinor, time.Now())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updated, err := upstreamClient.PlaceBid(ctx, listingID, upstream.PlaceBidRequest{
			AmountMinor: payload.AmountMinor,
			AutoBid:     payload.AutoBid,
			MaxBidMinor: payload.MaxBidMinor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// The engine only validates the amount; the auto-bid flags travel
		// with the request and belong on the returned record too.
		bid := result.Bid
		bid.AutoBid = payload.AutoBid
		bid.MaxBidMinor = payload.MaxBidMinor

		responses.WriteSuccessStatus(w, http.StatusCreated, placeBidResponse{
			Bid:                 bid,
			Listing:             *updated,
			ReserveMet:          result.ReserveMet,
			MinimumNextBidMinor: rules.MinimumNextBid(auction.EffectivePrice(*updated)),
		})
	}
}

func actorUUID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}
