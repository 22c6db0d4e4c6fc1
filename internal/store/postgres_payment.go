package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront-service/internal/domain"
)

// --- PaymentStorer Implementation ---

const paymentSelect = `SELECT id, order_id, user_id, amount, transaction_id, receipt_number, phone_number, status, created_at FROM shop.payments`

func scanPayment(row rowScanner, p *domain.Payment) error {
	var status string
	if err := row.Scan(
		&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.TransactionID,
		&p.ReceiptNumber, &p.PhoneNumber, &status, &p.CreatedAt,
	); err != nil {
		return err
	}
	p.Status = domain.PaymentStatus(status)
	return nil
}

// ReconcilePayment inserts the payment unless its transaction id is already
// recorded, then settles the matching orders. Redeliveries of a recorded
// transaction id change nothing.
func (s *PostgresStore) ReconcilePayment(ctx context.Context, params RecordPaymentParams) (*ReconcileResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: ReconcilePayment failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment := &domain.Payment{
		Amount:        params.Amount,
		TransactionID: params.TransactionID,
		ReceiptNumber: params.ReceiptNumber,
		PhoneNumber:   params.PhoneNumber,
		Status:        params.Status,
	}
	insert := `
		INSERT INTO shop.payments (transaction_id, amount, receipt_number, phone_number, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING id, created_at;
	`
	err = tx.QueryRowContext(ctx, insert,
		params.TransactionID, params.Amount, params.ReceiptNumber, params.PhoneNumber, string(params.Status),
	).Scan(&payment.ID, &payment.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing := &domain.Payment{}
		if err := scanPayment(tx.QueryRowContext(ctx, paymentSelect+` WHERE transaction_id = $1;`, params.TransactionID), existing); err != nil {
			return nil, fmt.Errorf("store: ReconcilePayment failed to load existing payment: %w", err)
		}
		s.logger.Info("Payment already recorded, ignoring redelivery",
			zap.String("transaction_id", params.TransactionID),
			zap.Int64("payment_id", existing.ID),
		)
		return &ReconcileResult{Payment: existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: ReconcilePayment failed to insert payment: %w", err)
	}

	updated, err := applyPayment(ctx, tx, payment)
	if err != nil {
		return nil, fmt.Errorf("store: ReconcilePayment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: ReconcilePayment failed to commit: %w", err)
	}
	return &ReconcileResult{Payment: payment, OrdersUpdated: updated}, nil
}
