package enums

// AuctionState is the derived sub-state of a biddable listing. Closed is
// terminal regardless of how it was reached (deadline or buy-now purchase).
type AuctionState string

const (
	AuctionStateOpen   AuctionState = "open"
	AuctionStateClosed AuctionState = "closed"
)

// String implements fmt.Stringer.
func (a AuctionState) String() string {
	return string(a)
}
