package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one (product, size, quantity) selection belonging to a user.
// Product is loaded alongside the line so prices are always read live.
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
	Product   Product   `json:"product"`
}

// UnitPrice is the product's current display price.
func (c CartItem) UnitPrice() decimal.Decimal {
	return c.Product.DisplayPrice()
}

// Total is quantity × current display price.
func (c CartItem) Total() decimal.Decimal {
	return c.UnitPrice().Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// CartTotal sums the line totals of items.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
	}
	return total
}
