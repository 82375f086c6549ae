package negotiation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/internal/auction"
	"github.com/jdupreez/veemark-gateway/internal/pricing"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/metrics"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

// Engine validates and transitions bids and offers. All methods are pure
// computation over the values passed in: nothing here blocks, and shared
// state (current bid, offer status) stays owned by the server. The engine is
// a pre-validation mirror, never the source of truth.
type Engine struct {
	rules    auction.Rules
	pricing  pricing.Config
	notifier OutbidNotifier
	metrics  *metrics.NegotiationMetrics
}

// EngineParams wires the engine's dependencies.
type EngineParams struct {
	Rules    auction.Rules
	Pricing  pricing.Config
	Notifier OutbidNotifier
	Metrics  *metrics.NegotiationMetrics
}

// NewEngine builds the negotiation engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Rules.MinIncrementPercent <= 0 {
		return nil, fmt.Errorf("auction rules with a positive increment required")
	}
	if params.Pricing.FeeRate.IsNegative() {
		return nil, fmt.Errorf("pricing config with a non-negative fee rate required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		rules:    params.Rules,
		pricing:  params.Pricing,
		notifier: notifier,
		metrics:  params.Metrics,
	}, nil
}

// SubmitBid validates a bid against the listing's current state. On success
// it returns the new bid and the listing delta; the caller applies the delta
// (here, by deferring to the server's authoritative copy).
func (e *Engine) SubmitBid(ctx context.Context, listing types.Listing, bidderID uuid.UUID, amountMinor int64, now time.Time) (*BidResult, error) {
	if err := listing.Validate(); err != nil {
		e.countBid("invalid_listing")
		return nil, err
	}
	if bidderID == uuid.Nil {
		e.countBid("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bidder id required")
	}
	if !listing.Type.Biddable() {
		e.countBid("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing does not accept bids")
	}
	if auction.IsExpired(listing, now) {
		e.countBid("auction_closed")
		return nil, errAuctionClosed()
	}

	minimum := e.rules.MinimumNextBid(auction.EffectivePrice(listing))
	if amountMinor < minimum {
		e.countBid("bid_too_low")
		return nil, errBidTooLow(minimum, amountMinor)
	}

	bid := types.Bid{
		ID:          uuid.New(),
		ListingID:   listing.ID,
		BidderID:    bidderID,
		AmountMinor: amountMinor,
		PlacedAt:    now,
	}
	result := &BidResult{
		Bid: bid,
		Delta: ListingDelta{
			CurrentBidMinor: amountMinor,
			TotalBids:       listing.TotalBids + 1,
		},
		ReserveMet: auction.IsReserveMet(&amountMinor, listing.ReservePriceMinor),
	}

	if listing.CurrentBidMinor != nil {
		e.notifier.NotifyOutbid(ctx, OutbidEvent{
			ListingID:        listing.ID,
			PreviousBidMinor: *listing.CurrentBidMinor,
			NewBidMinor:      amountMinor,
			PlacedAt:         now,
		})
	}

	e.countBid("accepted")
	return result, nil
}

// SubmitOffer validates a seller's proposal and returns a pending offer.
func (e *Engine) SubmitOffer(ctx context.Context, input SubmitOfferInput, now time.Time) (*types.Offer, error) {
	if input.SellerID == uuid.Nil {
		e.countOffer("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.Quantity <= 0 || input.Quantity > input.BuyRequest.Quantity {
		e.countOffer("invalid_quantity")
		return nil, errInvalidOfferQuantity(input.BuyRequest.Quantity, input.Quantity)
	}
	if input.UnitPriceMinor <= 0 {
		e.countOffer("invalid_price")
		return nil, errInvalidOfferPrice(input.UnitPriceMinor)
	}
	if !input.DeliveryMode.IsValid() {
		e.countOffer("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery mode")
	}
	if input.AbattoirFeeMinor < 0 {
		e.countOffer("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "abattoir fee cannot be negative")
	}
	if input.ValidityDays <= 0 {
		e.countOffer("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity must be at least one day")
	}

	offer := &types.Offer{
		ID:                uuid.New(),
		BuyRequestID:      input.BuyRequest.ID,
		SellerID:          input.SellerID,
		Quantity:          input.Quantity,
		UnitPriceMinor:    input.UnitPriceMinor,
		DeliveryMode:      input.DeliveryMode,
		AbattoirFeeMinor:  input.AbattoirFeeMinor,
		ValidityExpiresAt: now.Add(time.Duration(input.ValidityDays) * 24 * time.Hour),
		Status:            enums.OfferStatusPending,
		Notes:             input.Notes,
	}
	e.countOffer("created")
	return offer, nil
}

// AcceptOffer performs the sole forward transition out of pending besides
// automatic expiry. A second call on the same offer, concurrent or
// sequential, gets OfferAlreadyResolved and never a second order.
func (e *Engine) AcceptOffer(ctx context.Context, offer types.Offer, distanceKm *float64, now time.Time) (*AcceptedOffer, error) {
	if offer.Status == enums.OfferStatusAccepted {
		e.countOffer("already_resolved")
		return nil, errOfferAlreadyResolved(offer.Status)
	}
	if !now.Before(offer.ValidityExpiresAt) {
		e.countOffer("expired")
		return nil, errOfferExpired(offer.ValidityExpiresAt)
	}
	if offer.Status != enums.OfferStatusPending {
		e.countOffer("already_resolved")
		return nil, errOfferAlreadyResolved(offer.Status)
	}

	subtotal, err := pricing.LineTotal(offer.UnitPriceMinor, offer.Quantity)
	if err != nil {
		return nil, err
	}
	fee := e.pricing.MarketplaceFee(subtotal)
	shipping := e.pricing.ShippingCost(offer.DeliveryMode, distanceKm, offer.Quantity)
	abattoir := int64(0)
	if offer.DeliveryMode == enums.DeliveryModeRFQ {
		abattoir = offer.AbattoirFeeMinor
	}
	total, err := pricing.GrandTotal(subtotal, fee, shipping, abattoir)
	if err != nil {
		return nil, err
	}

	accepted := offer
	accepted.Status = enums.OfferStatusAccepted

	e.countOffer("accepted")
	return &AcceptedOffer{
		Offer:           accepted,
		SubtotalMinor:   subtotal,
		FeeMinor:        fee,
		ShippingMinor:   shipping,
		AbattoirMinor:   abattoir,
		GrandTotalMinor: total,
	}, nil
}

// ResolveOfferStatus is the lazy expiry projection: a pending offer whose
// validity has elapsed reads as expired. The input is never mutated and the
// projection is referentially transparent; there is no background sweeper,
// so callers apply this before presenting or accepting an offer.
func ResolveOfferStatus(offer types.Offer, now time.Time) types.Offer {
	if offer.Status == enums.OfferStatusPending && !now.Before(offer.ValidityExpiresAt) {
		resolved := offer
		resolved.Status = enums.OfferStatusExpired
		return resolved
	}
	return offer
}

func (e *Engine) countBid(result string) {
	if e.metrics != nil {
		e.metrics.IncBid(result)
	}
}

func (e *Engine) countOffer(result string) {
	if e.metrics != nil {
		e.metrics.IncOffer(result)
	}
}
