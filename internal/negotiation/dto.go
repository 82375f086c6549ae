package negotiation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/pkg/enums"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

// ListingDelta is the state change a successful bid implies. The engine
// never mutates the listing itself; the caller owns applying the delta
// atomically (or, in this gateway, letting the server do it).
type ListingDelta struct {
	CurrentBidMinor int64 `json:"current_bid_minor"`
	TotalBids       int   `json:"total_bids"`
}

// Apply returns a copy of the listing with the delta folded in.
func (d ListingDelta) Apply(listing types.Listing) types.Listing {
	updated := listing
	amount := d.CurrentBidMinor
	updated.CurrentBidMinor = &amount
	updated.TotalBids = d.TotalBids
	return updated
}

// BidResult carries the new bid record plus the delta the caller must apply.
type BidResult struct {
	Bid        types.Bid    `json:"bid"`
	Delta      ListingDelta `json:"delta"`
	ReserveMet bool         `json:"reserve_met"`
}

// SubmitOfferInput captures a seller's proposal against a buy request.
type SubmitOfferInput struct {
	BuyRequest       types.BuyRequest
	SellerID         uuid.UUID
	Quantity         int
	UnitPriceMinor   int64
	DeliveryMode     enums.DeliveryMode
	AbattoirFeeMinor int64
	ValidityDays     int
	Notes            *string
}

// AcceptedOffer is the successful output of AcceptOffer: the transitioned
// offer plus the totals the order-creation call needs.
type AcceptedOffer struct {
	Offer           types.Offer `json:"offer"`
	SubtotalMinor   int64       `json:"subtotal_minor"`
	FeeMinor        int64       `json:"fee_minor"`
	ShippingMinor   int64       `json:"shipping_minor"`
	AbattoirMinor   int64       `json:"abattoir_minor"`
	GrandTotalMinor int64       `json:"grand_total_minor"`
}

// OutbidEvent is emitted when a new high bid displaces a previous one.
type OutbidEvent struct {
	ListingID        uuid.UUID `json:"listing_id"`
	PreviousBidMinor int64     `json:"previous_bid_minor"`
	NewBidMinor      int64     `json:"new_bid_minor"`
	PlacedAt         time.Time `json:"placed_at"`
}

// OutbidNotifier observes displaced-bidder events. The payload format the
// notification fan-out uses downstream is its own concern.
type OutbidNotifier interface {
	NotifyOutbid(ctx context.Context, event OutbidEvent)
}

// NopNotifier drops events.
type NopNotifier struct{}

func (NopNotifier) NotifyOutbid(context.Context, OutbidEvent) {}
