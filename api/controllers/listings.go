package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/api/responses"
	"github.com/jdupreez/veemark-gateway/api/validators"
	"github.com/jdupreez/veemark-gateway/internal/auction"
	"github.com/jdupreez/veemark-gateway/internal/pricing"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

// ListingFetcher is the upstream read surface the listing handlers need.
type ListingFetcher interface {
	GetListing(ctx context.Context, listingID uuid.UUID) (*types.Listing, error)
}

// maxQuoteDistanceKm caps road-distance estimates, same bound as offer
// acceptance.
const maxQuoteDistanceKm = 3000

type listingQuoteResponse struct {
	ListingID              uuid.UUID          `json:"listing_id"`
	State                  enums.AuctionState `json:"state"`
	EffectivePriceMinor    int64              `json:"effective_price_minor"`
	EffectivePriceRand     string             `json:"effective_price_rand"`
	MinimumNextBidMinor    *int64             `json:"minimum_next_bid_minor,omitempty"`
	ReserveMet             bool               `json:"reserve_met"`
	TimeRemainingSeconds   *int64             `json:"time_remaining_seconds,omitempty"`
	EstimatedShippingMinor *int64             `json:"estimated_shipping_minor,omitempty"`
}

// ListingQuote returns the bid guidance the listing page renders: effective
// price, the lowest acceptable next bid, the auction countdown, and a
// seller-delivery shipping estimate when a distance_km query is supplied.
func ListingQuote(upstreamClient ListingFetcher, rules auction.Rules, pricingCfg pricing.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if upstreamClient == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upstream client unavailable"))
			return
		}

		listingID, err := validators.ParseUUIDParam(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		distanceKm, err := validators.ParseQueryFloat(r, "distance_km", 0, maxQuoteDistanceKm)
		if err != nil {
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
		if err := listing.Validate(); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "listing failed validation"))
			return
		}

		now := time.Now()
		effective := auction.EffectivePrice(*listing)
		resp := listingQuoteResponse{
			ListingID:           listing.ID,
			State:               auction.State(*listing, now),
			EffectivePriceMinor: effective,
			EffectivePriceRand:  types.FormatRand(effective),
			ReserveMet:          auction.IsReserveMet(listing.CurrentBidMinor, listing.ReservePriceMinor),
		}

		if listing.Type.Biddable() && !auction.IsExpired(*listing, now) {
			minimum := rules.MinimumNextBid(effective)
			resp.MinimumNextBidMinor = &minimum
		}
		if listing.AuctionEndTime != nil {
			remaining := int64(auction.TimeRemaining(*listing, now).Seconds())
			resp.TimeRemainingSeconds = &remaining
		}
		if distanceKm != nil {
			shipping := pricingCfg.ShippingCost(enums.DeliveryModeSeller, distanceKm, listing.Quantity)
			resp.EstimatedShippingMinor = &shipping
		}

		responses.WriteSuccess(w, resp)
	}
}
