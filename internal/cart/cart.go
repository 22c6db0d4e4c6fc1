// Package cart implements the shopping cart: adding products in a chosen
// size, adjusting lines, and pricing the cart from live product prices.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

var (
	ErrProductUnavailable = errors.New("cart: product not found or unavailable")
	ErrSizeRequired       = errors.New("cart: size selection is required")
)

// View is a priced snapshot of a user's cart.
type View struct {
	Items      []Line          `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Line is a cart item with its current unit price and line total.
type Line struct {
	domain.CartItem
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Service is the cart manager.
type Service struct {
	catalog store.CatalogStorer
	carts   store.CartStorer
	logger  *zap.Logger
}

func NewService(catalog store.CatalogStorer, carts store.CartStorer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, carts: carts, logger: logger}
}

// AddToCart puts one unit of the product in the given size into the user's
// cart, incrementing the existing line when there is one.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, size string) (*domain.CartItem, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return nil, ErrSizeRequired
	}

	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, fmt.Errorf("cart: failed to load product %d: %w", productID, err)
	}
	if !product.Available {
		return nil, ErrProductUnavailable
	}

	item, err := s.carts.AddCartItem(ctx, userID, productID, size)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, fmt.Errorf("cart: failed to add item: %w", err)
	}
	item.Product = *product
	s.logger.Debug("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.String("size", size),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

// UpdateQuantity sets a line's quantity, never below 1. Lines the user does
// not own are left alone without error.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	err := s.carts.UpdateCartItemQuantity(ctx, userID, itemID, quantity)
	return s.ignoreForeign(err, "update quantity", userID, itemID)
}

// UpdateSize moves a line to another size. Lines the user does not own are
// left alone without error.
func (s *Service) UpdateSize(ctx context.Context, userID, itemID int64, size string) error {
	size = strings.TrimSpace(size)
	if size == "" {
		return ErrSizeRequired
	}
	err := s.carts.UpdateCartItemSize(ctx, userID, itemID, size)
	return s.ignoreForeign(err, "update size", userID, itemID)
}

// RemoveItem deletes a line. Removing a missing or foreign line is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	err := s.carts.DeleteCartItem(ctx, userID, itemID)
	return s.ignoreForeign(err, "remove item", userID, itemID)
}

// ListCart prices every line at the product's current display price.
func (s *Service) ListCart(ctx context.Context, userID int64) (*View, error) {
	items, err := s.carts.ListCartItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cart: failed to list items: %w", err)
	}
	view := &View{Items: make([]Line, 0, len(items)), GrandTotal: domain.CartTotal(items)}
	for _, item := range items {
		view.Items = append(view.Items, Line{
			CartItem:  item,
			UnitPrice: item.UnitPrice(),
			LineTotal: item.Total(),
		})
	}
	return view, nil
}

func (s *Service) ignoreForeign(err error, op string, userID, itemID int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrCartItemNotFound) {
		s.logger.Debug("Ignoring cart operation on missing or foreign item",
			zap.String("op", op),
			zap.Int64("user_id", userID),
			zap.Int64("item_id", itemID),
		)
		return nil
	}
	return fmt.Errorf("cart: failed to %s: %w", op, err)
}
