package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/pkg/enums"
)

// CartRecord is a guest cart kept in the gateway's local store, keyed by the
// opaque token handed to the browser. Once the shopper authenticates the same
// repository interface can be backed by the marketplace API instead.
type CartRecord struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	GuestToken string           `gorm:"column:guest_token;uniqueIndex;not null"`
	Status     enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Items      []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CartRecord) TableName() string {
	return "cart_records"
}
