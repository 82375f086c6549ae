package enums

import "fmt"

// QuantityUnit is the unit a listing or buy request is priced in.
type QuantityUnit string

const (
	QuantityUnitHead  QuantityUnit = "head"
	QuantityUnitDozen QuantityUnit = "dozen"
	QuantityUnitKg    QuantityUnit = "kg"
	QuantityUnitBox   QuantityUnit = "box"
)

var validQuantityUnits = []QuantityUnit{
	QuantityUnitHead,
	QuantityUnitDozen,
	QuantityUnitKg,
	QuantityUnitBox,
}

// String implements fmt.Stringer.
func (q QuantityUnit) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuantityUnit.
func (q QuantityUnit) IsValid() bool {
	for _, candidate := range validQuantityUnits {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuantityUnit converts raw input into a QuantityUnit.
func ParseQuantityUnit(value string) (QuantityUnit, error) {
	for _, candidate := range validQuantityUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quantity unit %q", value)
}
