package payment

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
	"storefront-service/internal/metrics"
	"storefront-service/internal/mpesa"
	"storefront-service/internal/store"
)

// Reconciler applies provider callbacks to payments and orders.
type Reconciler struct {
	payments store.PaymentStorer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewReconciler(payments store.PaymentStorer, m *metrics.Metrics, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{payments: payments, metrics: m, logger: logger}
}

// HandleCallback records the payment described by body and settles every
// order carrying its CheckoutRequestID. Malformed bodies yield
// mpesa.ErrMalformedCallback and change nothing.
func (r *Reconciler) HandleCallback(ctx context.Context, body []byte) (*store.ReconcileResult, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "payment.HandleCallback")
	defer span.End()

	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		r.metrics.Callback("malformed")
		r.logger.Warn("Rejecting malformed M-Pesa callback", zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("mpesa.checkout_request_id", cb.CheckoutRequestID),
		attribute.Int("mpesa.result_code", cb.ResultCode),
	)

	status := domain.PaymentStatusFailed
	if cb.Succeeded() {
		status = domain.PaymentStatusCompleted
	}
	result, err := r.payments.ReconcilePayment(ctx, store.RecordPaymentParams{
		TransactionID: cb.CheckoutRequestID,
		Amount:        cb.Amount,
		ReceiptNumber: cb.ReceiptNumber,
		PhoneNumber:   cb.PhoneNumber,
		Status:        status,
	})
	if err != nil {
		r.metrics.Callback("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("payment: failed to reconcile %s: %w", cb.CheckoutRequestID, err)
	}

	if result.Duplicate {
		r.metrics.Callback("duplicate")
		return result, nil
	}
	r.metrics.Callback(string(status))

	fields := []zap.Field{
		zap.String("checkout_request_id", cb.CheckoutRequestID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc),
		zap.String("amount", cb.Amount.StringFixed(2)),
		zap.String("receipt", cb.ReceiptNumber),
		zap.Int("orders_updated", result.OrdersUpdated),
	}
	if result.OrdersUpdated == 0 {
		r.logger.Warn("M-Pesa callback matched no orders", fields...)
	} else {
		r.logger.Info("M-Pesa callback reconciled", fields...)
	}
	return result, nil
}

// IsMalformed reports whether err came from an unparseable callback.
func IsMalformed(err error) bool {
	return errors.Is(err, mpesa.ErrMalformedCallback)
}
