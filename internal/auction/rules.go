package auction

import (
	"time"

	"github.com/jdupreez/veemark-gateway/pkg/config"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

// Rules evaluates the marketplace's bidding rules against a listing. The
// gateway mirrors the server's rules for fast local rejection; the server
// remains authoritative.
type Rules struct {
	MinIncrementPercent int64
}

// DefaultRules returns the flat 5% minimum-increment rule.
func DefaultRules() Rules {
	return Rules{MinIncrementPercent: 5}
}

// FromAppConfig builds Rules from the environment config.
func FromAppConfig(cfg config.AuctionConfig) Rules {
	pct := cfg.MinIncrementPercent
	if pct <= 0 {
		pct = 5
	}
	return Rules{MinIncrementPercent: pct}
}

// MinimumNextBid returns the lowest acceptable next bid over the current
// effective price. Rounding is a ceiling to the minor unit: sellers must
// never receive less than the nominal increment.
func (r Rules) MinimumNextBid(currentOrStartingMinor int64) int64 {
	if currentOrStartingMinor <= 0 {
		return 0
	}
	pct := r.MinIncrementPercent
	if pct <= 0 {
		pct = 5
	}
	raised := currentOrStartingMinor * (100 + pct)
	next := raised / 100
	if raised%100 != 0 {
		next++
	}
	return next
}

// IsReserveMet reports whether the current bid satisfies the seller's hidden
// floor. A listing without a reserve is always met; a listing without bids
// never meets a set reserve.
func IsReserveMet(currentBidMinor, reservePriceMinor *int64) bool {
	if reservePriceMinor == nil {
		return true
	}
	if currentBidMinor == nil {
		return false
	}
	return *currentBidMinor >= *reservePriceMinor
}

// EffectivePrice is the amount the next buyer action is priced against:
// the fixed price for buy-now listings, otherwise the current bid falling
// back to the starting price.
func EffectivePrice(listing types.Listing) int64 {
	if !listing.Type.Biddable() {
		return listing.PricePerUnitMinor
	}
	if listing.CurrentBidMinor != nil {
		return *listing.CurrentBidMinor
	}
	if listing.StartingPriceMinor != nil {
		return *listing.StartingPriceMinor
	}
	return 0
}

// IsExpired reports whether the auction deadline has elapsed. The check runs
// at evaluation time: a bid racing the boundary loses if now has reached the
// end time, regardless of when it was submitted.
func IsExpired(listing types.Listing, now time.Time) bool {
	return listing.AuctionEndTime != nil && !now.Before(*listing.AuctionEndTime)
}

// TimeRemaining returns the duration until the auction closes, never
// negative. Listings without a deadline report zero.
func TimeRemaining(listing types.Listing, now time.Time) time.Duration {
	if listing.AuctionEndTime == nil {
		return 0
	}
	remaining := listing.AuctionEndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// State derives the auction sub-state. Closed is terminal; no bid is
// accepted after it regardless of arrival order.
func State(listing types.Listing, now time.Time) enums.AuctionState {
	if IsExpired(listing, now) {
		return enums.AuctionStateClosed
	}
	return enums.AuctionStateOpen
}
