package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sale(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func TestProduct_DisplayPrice(t *testing.T) {
	tests := []struct {
		name     string
		product  Product
		expected string
	}{
		{"no sale price", Product{Price: dec("1000")}, "1000"},
		{"sale price set", Product{Price: dec("1000"), SalePrice: sale("750")}, "750"},
		{"zero sale price falls back to price", Product{Price: dec("1000"), SalePrice: sale("0")}, "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, dec(tt.expected).Equal(tt.product.DisplayPrice()), "got %s", tt.product.DisplayPrice())
		})
	}
}

func TestProduct_DiscountPercent(t *testing.T) {
	assert.Equal(t, int64(0), Product{Price: dec("1000")}.DiscountPercent())
	assert.Equal(t, int64(25), Product{Price: dec("1000"), SalePrice: sale("750")}.DiscountPercent())
	assert.Equal(t, int64(33), Product{Price: dec("300"), SalePrice: sale("200")}.DiscountPercent())
	// 12.5 rounds to the even neighbour.
	assert.Equal(t, int64(12), Product{Price: dec("200"), SalePrice: sale("175")}.DiscountPercent())
	assert.Equal(t, int64(0), Product{Price: dec("0"), SalePrice: sale("10")}.DiscountPercent())
}

func TestProduct_Sizes(t *testing.T) {
	assert.Equal(t, []string{"S", "M", "XL"}, Product{AvailableSizes: "S, M,,XL"}.Sizes())
	assert.Empty(t, Product{AvailableSizes: ""}.Sizes())
}

func TestProduct_InStock(t *testing.T) {
	assert.True(t, Product{Available: true, Quantity: 3}.InStock())
	assert.False(t, Product{Available: true, Quantity: 0}.InStock())
	assert.False(t, Product{Available: false, Quantity: 3}.InStock())
}

func TestCartTotal(t *testing.T) {
	items := []CartItem{
		{Quantity: 2, Product: Product{Price: dec("100")}},
		{Quantity: 1, Product: Product{Price: dec("500"), SalePrice: sale("450")}},
	}
	assert.True(t, dec("200").Equal(items[0].Total()))
	assert.True(t, dec("650").Equal(CartTotal(items)))
	assert.True(t, CartTotal(nil).IsZero())
}

func TestOrder_Totals(t *testing.T) {
	order := Order{Quantity: 3, UnitPrice: dec("100"), Product: &Product{Price: dec("120")}}
	assert.True(t, dec("360").Equal(order.TotalPrice()))
	assert.True(t, dec("300").Equal(order.SnapshotTotal()))

	order.Product = nil
	assert.True(t, order.TotalPrice().IsZero())
}

func TestInitialOrderStatus(t *testing.T) {
	assert.Equal(t, OrderStatusProcessing, InitialOrderStatus(PaymentMethodCOD))
	assert.Equal(t, OrderStatusPending, InitialOrderStatus(PaymentMethodOnline))
}

func TestPayment_OrderOutcome(t *testing.T) {
	paid, status := Payment{Status: PaymentStatusCompleted}.OrderOutcome()
	assert.True(t, paid)
	assert.Equal(t, OrderStatusProcessing, status)

	paid, status = Payment{Status: PaymentStatusFailed}.OrderOutcome()
	assert.False(t, paid)
	assert.Equal(t, OrderStatusFailed, status)
}
