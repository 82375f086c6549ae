package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/pkg/enums"
)

// CartItem snapshots one listing inside a guest cart. Unit price is copied at
// add time; the quote endpoint revalidates against the live listing.
type CartItem struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID          `gorm:"column:cart_id;type:uuid;not null;index"`
	ListingID      uuid.UUID          `gorm:"column:listing_id;type:uuid;not null"`
	Title          string             `gorm:"column:title;not null"`
	Quantity       int                `gorm:"column:quantity;not null"`
	Unit           enums.QuantityUnit `gorm:"column:unit;type:text;not null"`
	UnitPriceMinor int64              `gorm:"column:unit_price_minor;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CartItem) TableName() string {
	return "cart_items"
}
