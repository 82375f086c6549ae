package negotiation

import (
	"fmt"
	"time"

	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
)

// Stable reasons surfaced in error details so clients can branch without
// parsing messages.
const (
	ReasonAuctionClosed        = "auction_closed"
	ReasonBidTooLow            = "bid_too_low"
	ReasonInvalidQuantity      = "invalid_quantity"
	ReasonInvalidPrice         = "invalid_price"
	ReasonOfferExpired         = "offer_expired"
	ReasonOfferAlreadyResolved = "offer_already_resolved"
)

func errAuctionClosed() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "auction is closed").
		WithDetails(map[string]any{"reason": ReasonAuctionClosed})
}

func errBidTooLow(minimumMinor, offeredMinor int64) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("bid below the minimum next bid of %d", minimumMinor)).
		WithDetails(map[string]any{
			"reason":            ReasonBidTooLow,
			"minimum_bid_minor": minimumMinor,
			"offered_bid_minor": offeredMinor,
		})
}

func errInvalidOfferQuantity(requestedQty, offeredQty int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "offer quantity must be between 1 and the requested quantity").
		WithDetails(map[string]any{
			"reason":        ReasonInvalidQuantity,
			"requested_qty": requestedQty,
			"offered_qty":   offeredQty,
		})
}

func errInvalidOfferPrice(unitPriceMinor int64) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive").
		WithDetails(map[string]any{
			"reason":           ReasonInvalidPrice,
			"unit_price_minor": unitPriceMinor,
		})
}

func errOfferExpired(expiredAt time.Time) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "offer validity has expired").
		WithDetails(map[string]any{
			"reason":     ReasonOfferExpired,
			"expired_at": expiredAt,
		})
}

func errOfferAlreadyResolved(status enums.OfferStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "offer already resolved").
		WithDetails(map[string]any{
			"reason": ReasonOfferAlreadyResolved,
			"status": status,
		})
}

// Reason extracts the stable reason from a negotiation error, or "".
func Reason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	reason, _ := details["reason"].(string)
	return reason
}
