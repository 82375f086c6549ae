package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jdupreez/veemark-gateway/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
// The gorm implementation stores guest carts locally; a server-backed cart for
// authenticated shoppers can satisfy the same interface.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByToken(ctx context.Context, guestToken string) (*models.CartRecord, error)
	Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error)
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error
	DeleteByToken(ctx context.Context, guestToken string) error
}
