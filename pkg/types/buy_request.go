package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/pkg/enums"
)

// BuyRequest is a buyer-initiated want-ad that sellers answer with offers.
// It closes once the deadline passes or any offer on it is accepted; the
// server enforces closure, the gateway only reads it.
type BuyRequest struct {
	ID               uuid.UUID          `json:"id"`
	BuyerID          uuid.UUID          `json:"buyer_id"`
	Species          string             `json:"species"`
	Quantity         int                `json:"qty"`
	Unit             enums.QuantityUnit `json:"unit"`
	DeadlineAt       time.Time          `json:"deadline_at"`
	TargetPriceMinor *int64             `json:"target_price_minor,omitempty"`
	Province         string             `json:"province"`
	OffersCount      int                `json:"offers_count"`
}

// Offer is a seller's priced proposal against a buy request. Currency is in
// minor units end to end; the display layer divides by 100 at render time.
type Offer struct {
	ID                uuid.UUID          `json:"id"`
	BuyRequestID      uuid.UUID          `json:"buy_request_id"`
	SellerID          uuid.UUID          `json:"seller_id"`
	Quantity          int                `json:"qty"`
	UnitPriceMinor    int64              `json:"unit_price_minor"`
	DeliveryMode      enums.DeliveryMode `json:"delivery_mode"`
	AbattoirFeeMinor  int64              `json:"abattoir_fee_minor"`
	ValidityExpiresAt time.Time          `json:"validity_expires_at"`
	Status            enums.OfferStatus  `json:"status"`
	Notes             *string            `json:"notes,omitempty"`
}
