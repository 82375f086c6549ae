package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
)

// Listing is a sellable unit of livestock as served by the marketplace API.
// The gateway treats it as a possibly-stale cache; the server owns
// CurrentBidMinor and TotalBids.
type Listing struct {
	ID                 uuid.UUID          `json:"id"`
	Title              string             `json:"title"`
	Quantity           int                `json:"quantity"`
	Unit               enums.QuantityUnit `json:"unit"`
	Type               enums.ListingType  `json:"listing_type"`
	PricePerUnitMinor  int64              `json:"price_per_unit_minor"`
	StartingPriceMinor *int64             `json:"starting_price_minor,omitempty"`
	BuyNowPriceMinor   *int64             `json:"buy_now_price_minor,omitempty"`
	CurrentBidMinor    *int64             `json:"current_bid_minor,omitempty"`
	ReservePriceMinor  *int64             `json:"reserve_price_minor,omitempty"`
	AuctionEndTime     *time.Time         `json:"auction_end_time,omitempty"`
	TotalBids          int                `json:"total_bids"`
	SellerID           uuid.UUID          `json:"seller_id"`
	Province           string             `json:"province,omitempty"`
}

// Validate enforces the structural invariants a listing must satisfy before
// any auction rule is evaluated against it.
func (l Listing) Validate() error {
	if l.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing quantity must be positive")
	}
	if !l.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown quantity unit")
	}
	if !l.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown listing type")
	}
	if l.Type.Biddable() && l.StartingPriceMinor == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "auction and hybrid listings require a starting price")
	}
	if l.Type == enums.ListingTypeHybrid {
		if l.BuyNowPriceMinor == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "hybrid listings require a buy-now price")
		}
		if l.StartingPriceMinor != nil && *l.BuyNowPriceMinor < *l.StartingPriceMinor {
			return pkgerrors.New(pkgerrors.CodeValidation, "hybrid buy-now price below starting price")
		}
	}
	return nil
}

// Bid is an immutable record of a single bid event. Bids are append-only;
// the gateway never rewrites one after creation.
type Bid struct {
	ID          uuid.UUID `json:"id"`
	ListingID   uuid.UUID `json:"listing_id"`
	BidderID    uuid.UUID `json:"bidder_id"`
	AmountMinor int64     `json:"amount_minor"`
	PlacedAt    time.Time `json:"placed_at"`
	AutoBid     bool      `json:"auto_bid"`
	MaxBidMinor *int64    `json:"max_bid_minor,omitempty"`
}
