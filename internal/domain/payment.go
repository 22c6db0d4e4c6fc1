package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement outcome of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment records one provider callback. TransactionID is unique.
type Payment struct {
	ID            int64           `json:"id"`
	OrderID       *int64          `json:"order_id,omitempty"`
	UserID        *int64          `json:"user_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	PhoneNumber   string          `json:"phone_number,omitempty"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Succeeded reports whether the payment settled.
func (p Payment) Succeeded() bool {
	return p.Status == PaymentStatusCompleted
}

// OrderOutcome is the order state a payment settles to.
func (p Payment) OrderOutcome() (paid bool, status OrderStatus) {
	if p.Succeeded() {
		return true, OrderStatusProcessing
	}
	return false, OrderStatusFailed
}
