package enums

import "fmt"

// DeliveryMode selects who moves the stock after an offer is accepted.
// SELLER means the seller transports to the buyer; RFQ routes through an
// abattoir and carries a per-offer abattoir fee.
type DeliveryMode string

const (
	DeliveryModeSeller DeliveryMode = "SELLER"
	DeliveryModeRFQ    DeliveryMode = "RFQ"
)

var validDeliveryModes = []DeliveryMode{
	DeliveryModeSeller,
	DeliveryModeRFQ,
}

// String implements fmt.Stringer.
func (d DeliveryMode) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMode.
func (d DeliveryMode) IsValid() bool {
	for _, candidate := range validDeliveryModes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryMode converts raw input into a DeliveryMode.
func ParseDeliveryMode(value string) (DeliveryMode, error) {
	for _, candidate := range validDeliveryModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery mode %q", value)
}
