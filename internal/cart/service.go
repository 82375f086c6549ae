package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jdupreez/veemark-gateway/internal/pricing"
	"github.com/jdupreez/veemark-gateway/pkg/db/models"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
)

const maxCartItems = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes guest cart operations with live pricing quotes.
type Service interface {
	GetCart(ctx context.Context, guestToken string) (*CartView, error)
	PutCart(ctx context.Context, guestToken string, input PutCartInput) (*CartView, error)
	ClearCart(ctx context.Context, guestToken string) error
}

type service struct {
	repo    CartRepository
	tx      txRunner
	pricing pricing.Config
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, pricingCfg pricing.Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		pricing: pricingCfg,
	}, nil
}

// PutCartInput is the full desired cart state; the service replaces the
// stored items rather than merging.
type PutCartInput struct {
	Items []CartItemInput
}

// CartItemInput mirrors the data stored for each cart item.
type CartItemInput struct {
	ListingID      uuid.UUID
	Title          string
	Quantity       int
	Unit           enums.QuantityUnit
	UnitPriceMinor int64
}

// CartView is the priced read model returned to the browser.
type CartView struct {
	Items               []CartItemView `json:"items"`
	SubtotalMinor       int64          `json:"subtotal_minor"`
	MarketplaceFeeMinor int64          `json:"marketplace_fee_minor"`
	TotalMinor          int64          `json:"total_minor"`
}

// CartItemView is one priced line in the cart view.
type CartItemView struct {
	ListingID      uuid.UUID          `json:"listing_id"`
	Title          string             `json:"title"`
	Quantity       int                `json:"qty"`
	Unit           enums.QuantityUnit `json:"unit"`
	UnitPriceMinor int64              `json:"unit_price_minor"`
	LineTotalMinor int64              `json:"line_total_minor"`
}

// GetCart returns the guest's priced cart. A guest without a stored cart gets
// an empty view, not an error: every browser session has a cart.
func (s *service) GetCart(ctx context.Context, guestToken string) (*CartView, error) {
	if strings.TrimSpace(guestToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest token is required")
	}
	record, err := s.repo.FindByToken(ctx, guestToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CartView{Items: []CartItemView{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return s.quote(record.Items)
}

// PutCart validates the submitted items and replaces the stored cart
// atomically, returning the re-priced view.
func (s *service) PutCart(ctx context.Context, guestToken string, input PutCartInput) (*CartView, error) {
	if strings.TrimSpace(guestToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest token is required")
	}
	if len(input.Items) > maxCartItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart exceeds the item limit").
			WithDetails(map[string]any{"max_items": maxCartItems})
	}

	items := make([]models.CartItem, 0, len(input.Items))
	seen := map[uuid.UUID]struct{}{}
	for i, payload := range input.Items {
		if err := validateItem(payload); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item").
				WithDetails(map[string]any{"item_index": i})
		}
		if _, dup := seen[payload.ListingID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate listing in cart").
				WithDetails(map[string]any{"listing_id": payload.ListingID})
		}
		seen[payload.ListingID] = struct{}{}
		items = append(items, models.CartItem{
			ListingID:      payload.ListingID,
			Title:          payload.Title,
			Quantity:       payload.Quantity,
			Unit:           payload.Unit,
			UnitPriceMinor: payload.UnitPriceMinor,
		})
	}

	var record *models.CartRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByToken(ctx, guestToken)
		switch {
		case err == nil:
			record = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			record, err = repo.Create(ctx, &models.CartRecord{GuestToken: guestToken})
			if err != nil {
				return err
			}
		default:
			return err
		}
		return repo.ReplaceItems(ctx, record.ID, items)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cart")
	}
	return s.quote(items)
}

// ClearCart drops the guest's cart entirely.
func (s *service) ClearCart(ctx context.Context, guestToken string) error {
	if strings.TrimSpace(guestToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest token is required")
	}
	if err := s.repo.DeleteByToken(ctx, guestToken); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func validateItem(item CartItemInput) error {
	if item.ListingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if strings.TrimSpace(item.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item title is required")
	}
	if item.Quantity <= 0 {
		return pricing.ErrInvalidQuantity
	}
	if item.UnitPriceMinor <= 0 {
		return pricing.ErrInvalidPrice
	}
	if !item.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown quantity unit").
			WithDetails(map[string]any{"unit": string(item.Unit)})
	}
	return nil
}

func (s *service) quote(items []models.CartItem) (*CartView, error) {
	view := &CartView{Items: make([]CartItemView, 0, len(items))}
	for _, item := range items {
		lineTotal, err := pricing.LineTotal(item.UnitPriceMinor, item.Quantity)
		if err != nil {
			return nil, err
		}
		view.Items = append(view.Items, CartItemView{
			ListingID:      item.ListingID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			UnitPriceMinor: item.UnitPriceMinor,
			LineTotalMinor: lineTotal,
		})
		sum := view.SubtotalMinor + lineTotal
		if sum < view.SubtotalMinor {
			return nil, pricing.ErrArithmeticOverflow
		}
		view.SubtotalMinor = sum
	}
	view.MarketplaceFeeMinor = s.pricing.MarketplaceFee(view.SubtotalMinor)
	total, err := pricing.GrandTotal(view.SubtotalMinor, view.MarketplaceFeeMinor, 0, 0)
	if err != nil {
		return nil, err
	}
	view.TotalMinor = total
	return view, nil
}
