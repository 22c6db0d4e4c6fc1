package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"    // Cash on delivery
	PaymentMethodOnline PaymentMethod = "ONLINE" // M-Pesa STK Push
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusPaid       OrderStatus = "Paid"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
	OrderStatusFailed     OrderStatus = "Failed"
)

// InitialOrderStatus is the status an order is created with.
// Cash orders need no external confirmation, online orders wait for the provider callback.
func InitialOrderStatus(m PaymentMethod) OrderStatus {
	if m == PaymentMethodCOD {
		return OrderStatusProcessing
	}
	return OrderStatusPending
}

// Order is created per cart line at checkout.
// Orders that were paid for together share a TransactionID.
type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	ProductID     *int64          `json:"product_id,omitempty"`
	Product       *Product        `json:"product,omitempty"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	Address       string          `json:"address"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Paid          bool            `json:"paid"`
	Delivered     bool            `json:"delivered"`
	Status        OrderStatus     `json:"status"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	PaymentID     *int64          `json:"payment_id,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"` // Display price when the order was placed
	CreatedAt     time.Time       `json:"created_at"`
}

// TotalPrice is quantity × the product's current display price.
// It is zero when the product is gone.
func (o Order) TotalPrice() decimal.Decimal {
	if o.Product == nil {
		return decimal.Zero
	}
	return o.Product.DisplayPrice().Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// SnapshotTotal is quantity × the unit price captured at checkout.
func (o Order) SnapshotTotal() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// OrderIDs collects the ids of orders.
func OrderIDs(orders []Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
