package enums

import "fmt"

// ListingType distinguishes how a listing can be purchased.
type ListingType string

const (
	ListingTypeBuyNow  ListingType = "buy_now"
	ListingTypeAuction ListingType = "auction"
	ListingTypeHybrid  ListingType = "hybrid"
)

var validListingTypes = []ListingType{
	ListingTypeBuyNow,
	ListingTypeAuction,
	ListingTypeHybrid,
}

// String implements fmt.Stringer.
func (l ListingType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingType.
func (l ListingType) IsValid() bool {
	for _, candidate := range validListingTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// Biddable reports whether the listing accepts competitive bids.
func (l ListingType) Biddable() bool {
	return l == ListingTypeAuction || l == ListingTypeHybrid
}

// ParseListingType converts raw input into a ListingType.
func ParseListingType(value string) (ListingType, error) {
	for _, candidate := range validListingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing type %q", value)
}
