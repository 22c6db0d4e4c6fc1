// Package payment asks the customer's phone to pay for pending orders and
// settles those orders when the provider reports back.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
	"storefront-service/internal/metrics"
	"storefront-service/internal/mpesa"
	"storefront-service/internal/session"
	"storefront-service/internal/store"
)

const transactionDesc = "Payment for goods"

var (
	ErrNoPendingOrders = errors.New("payment: no orders to process")
	ErrPhoneNotSet     = errors.New("payment: user phone number not set")

	// ErrPaymentInProgress means an earlier push for these orders has not been answered yet.
	ErrPaymentInProgress = errors.New("payment: a payment request for these orders is still awaiting confirmation")
)

// PushClient submits STK push requests.
type PushClient interface {
	STKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*mpesa.STKPushResponse, error)
}

// PushResult is returned to the client after the provider accepted a push.
type PushResult struct {
	MerchantRequestID   string  `json:"MerchantRequestID"`
	CheckoutRequestID   string  `json:"CheckoutRequestID"`
	ResponseCode        string  `json:"ResponseCode"`
	ResponseDescription string  `json:"ResponseDescription"`
	CustomerMessage     string  `json:"CustomerMessage"`
	OrderIDs            []int64 `json:"order_ids"`
	Amount              int64   `json:"amount"`
}

// Initiator starts STK pushes for the orders stashed at checkout.
type Initiator struct {
	sessions session.Store
	orders   store.OrderStorer
	profiles store.ProfileStorer
	client   PushClient
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewInitiator(sessions session.Store, orders store.OrderStorer, profiles store.ProfileStorer, client PushClient, m *metrics.Metrics, logger *zap.Logger) *Initiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initiator{
		sessions: sessions,
		orders:   orders,
		profiles: profiles,
		client:   client,
		metrics:  m,
		logger:   logger,
	}
}

// InitiateSTKPush charges the user's phone for their pending online orders
// and stamps the provider's CheckoutRequestID onto them. Orders are left
// untouched when the provider does not accept the push.
func (i *Initiator) InitiateSTKPush(ctx context.Context, user domain.User) (*PushResult, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "payment.InitiateSTKPush")
	defer span.End()

	result, err := i.initiate(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.metrics.STKPush(outcome(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("mpesa.checkout_request_id", result.CheckoutRequestID))
	i.metrics.STKPush("accepted")
	return result, nil
}

func (i *Initiator) initiate(ctx context.Context, user domain.User) (*PushResult, error) {
	ids, err := i.sessions.PendingOrders(ctx, user.ID)
	if err != nil {
		if errors.Is(err, session.ErrNoPendingOrders) {
			return nil, ErrNoPendingOrders
		}
		return nil, fmt.Errorf("payment: failed to read pending orders: %w", err)
	}

	profile, err := i.profiles.GetOrCreateProfile(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("payment: failed to load profile: %w", err)
	}
	phone := profile.Phone()
	if phone == "" {
		return nil, ErrPhoneNotSet
	}

	orders, err := i.orders.ListOrdersByIDs(ctx, user.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("payment: failed to load orders: %w", err)
	}
	unpaid := awaitingPayment(orders)
	if len(unpaid) == 0 {
		// Everything in the session was settled or cancelled meanwhile.
		if err := i.sessions.ClearPendingOrders(ctx, user.ID); err != nil {
			i.logger.Warn("Failed to clear settled pending orders", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrNoPendingOrders
	}
	if pushOutstanding(unpaid) {
		return nil, ErrPaymentInProgress
	}

	live, snapshot := decimal.Zero, decimal.Zero
	for _, o := range unpaid {
		live = live.Add(o.TotalPrice())
		snapshot = snapshot.Add(o.SnapshotTotal())
	}
	if !live.Equal(snapshot) {
		i.logger.Warn("Prices changed since checkout, charging current prices",
			zap.Int64("user_id", user.ID),
			zap.String("checkout_total", snapshot.StringFixed(2)),
			zap.String("current_total", live.StringFixed(2)),
		)
	}
	amount := live.Ceil().IntPart()

	orderIDs := domain.OrderIDs(unpaid)
	resp, err := i.client.STKPush(ctx, phone, amount, AccountReference(orderIDs), transactionDesc)
	if err != nil {
		return nil, err
	}

	stamped, err := i.orders.AttachTransactionID(ctx, orderIDs, resp.CheckoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("payment: failed to attach transaction id %s: %w", resp.CheckoutRequestID, err)
	}
	if stamped < int64(len(orderIDs)) {
		// Another push won the race for some of these orders; its callback settles them.
		i.logger.Warn("Some orders already carried a transaction id",
			zap.Int64("user_id", user.ID),
			zap.String("checkout_request_id", resp.CheckoutRequestID),
			zap.Int64("orders_stamped", stamped),
		)
	}
	i.logger.Info("STK push initiated",
		zap.Int64("user_id", user.ID),
		zap.String("checkout_request_id", resp.CheckoutRequestID),
		zap.Int64s("order_ids", orderIDs),
		zap.Int64("orders_stamped", stamped),
		zap.Int64("amount", amount),
	)

	return &PushResult{
		MerchantRequestID:   resp.MerchantRequestID,
		CheckoutRequestID:   resp.CheckoutRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
		OrderIDs:            orderIDs,
		Amount:              amount,
	}, nil
}

// AccountReference labels a push with the orders it pays for.
func AccountReference(orderIDs []int64) string {
	parts := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "OrderBatch-" + strings.Join(parts, ",")
}

func awaitingPayment(orders []domain.Order) []domain.Order {
	unpaid := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !o.Paid && o.Status == domain.OrderStatusPending {
			unpaid = append(unpaid, o)
		}
	}
	return unpaid
}

func pushOutstanding(orders []domain.Order) bool {
	for _, o := range orders {
		if o.TransactionID != nil {
			return true
		}
	}
	return false
}

// IsClientError reports whether err was caused by the user's own state
// rather than by the provider or the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoPendingOrders) ||
		errors.Is(err, ErrPhoneNotSet) ||
		errors.Is(err, ErrPaymentInProgress) ||
		errors.Is(err, mpesa.ErrInvalidPhone) ||
		errors.Is(err, mpesa.ErrInvalidAmount)
}

func outcome(err error) string {
	if IsClientError(err) {
		return "rejected"
	}
	return "failed"
}
