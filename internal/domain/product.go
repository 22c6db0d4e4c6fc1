package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category represents a product category in the storefront.
// Names are unique; the image is optional.
type Category struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image,omitempty"`
}

// Product represents a product in the catalog.
// Catalog management happens outside this service, so the core only reads products.
type Product struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	Description    *string             `json:"description,omitempty"`
	CategoryID     *int64              `json:"category_id,omitempty"`
	Price          decimal.Decimal     `json:"price"`
	SalePrice      decimal.NullDecimal `json:"sale_price"`
	Image          *string             `json:"image,omitempty"`
	Available      bool                `json:"available"`
	Quantity       int32               `json:"quantity"`        // Units in stock
	AvailableSizes string              `json:"available_sizes"` // Comma-separated, e.g. "S,M,L,XL"
}

// hasSale reports whether a positive sale price is set.
func (p Product) hasSale() bool {
	return p.SalePrice.Valid && p.SalePrice.Decimal.IsPositive()
}

// DisplayPrice is the effective unit price: the sale price when set, else the list price.
func (p Product) DisplayPrice() decimal.Decimal {
	if p.hasSale() {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// DiscountPercent returns the whole-number discount of the sale price against the list price.
// Halves round to even.
func (p Product) DiscountPercent() int64 {
	if !p.hasSale() || p.Price.IsZero() {
		return 0
	}
	return p.Price.Sub(p.SalePrice.Decimal).
		Div(p.Price).
		Mul(decimal.NewFromInt(100)).
		RoundBank(0).
		IntPart()
}

// Sizes returns the list of sizes the product is offered in.
func (p Product) Sizes() []string {
	if strings.TrimSpace(p.AvailableSizes) == "" {
		return []string{}
	}
	parts := strings.Split(p.AvailableSizes, ",")
	sizes := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

// InStock reports whether the product can currently be sold.
func (p Product) InStock() bool {
	return p.Available && p.Quantity > 0
}
