// Package checkout turns a user's cart into orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
	"storefront-service/internal/metrics"
	"storefront-service/internal/notify"
	"storefront-service/internal/session"
	"storefront-service/internal/store"
)

// ErrEmptyCart means there is nothing to check out.
var ErrEmptyCart = errors.New("checkout: nothing to checkout, cart is empty")

// ValidationError reports a problem with one checkout field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: %s: %s", e.Field, e.Message)
}

// Input is what the customer submits at checkout.
type Input struct {
	PaymentMethod string
	PhoneNumber   string
	Email         string
}

// Result describes the orders a checkout created.
type Result struct {
	Orders        []domain.Order
	OrderIDs      []int64
	Total         decimal.Decimal
	PaymentMethod domain.PaymentMethod
	Email         string
	Message       string
}

// Notifier is told about every successful checkout.
type Notifier interface {
	OrderPlaced(ctx context.Context, n notify.OrderPlaced)
}

// Service is the checkout orchestrator.
type Service struct {
	carts    store.CartStorer
	orders   store.OrderStorer
	profiles store.ProfileStorer
	sessions session.Store
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewService(
	carts store.CartStorer,
	orders store.OrderStorer,
	profiles store.ProfileStorer,
	sessions session.Store,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		carts:    carts,
		orders:   orders,
		profiles: profiles,
		sessions: sessions,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Checkout creates one order per cart line and empties the cart. Online
// orders are remembered in the session for the payment step.
func (s *Service) Checkout(ctx context.Context, user domain.User, in Input) (*Result, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "checkout.Checkout")
	defer span.End()

	items, err := s.carts.ListCartItems(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	total := domain.CartTotal(items)

	method, err := parsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	if phone != "" {
		if err := s.profiles.SetPhoneNumber(ctx, user.ID, phone); err != nil {
			return nil, fmt.Errorf("checkout: failed to save phone number: %w", err)
		}
	}
	if phone == "" {
		return nil, &ValidationError{Field: "phone_number", Message: "Phone number is required."}
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = strings.TrimSpace(user.Email)
	}
	if email == "" {
		return nil, &ValidationError{Field: "email", Message: "Email address is required."}
	}

	status := domain.InitialOrderStatus(method)
	pending := make([]domain.Order, 0, len(items))
	itemIDs := make([]int64, 0, len(items))
	for _, item := range items {
		product := item.Product
		pending = append(pending, domain.Order{
			UserID:        user.ID,
			ProductID:     &item.ProductID,
			Product:       &product,
			Size:          item.Size,
			Quantity:      item.Quantity,
			Address:       "",
			PaymentMethod: method,
			Paid:          false,
			Status:        status,
			UnitPrice:     item.UnitPrice(),
		})
		itemIDs = append(itemIDs, item.ID)
	}

	orders, err := s.orders.CreateOrdersFromCart(ctx, user.ID, itemIDs, pending)
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to create orders: %w", err)
	}
	orderIDs := domain.OrderIDs(orders)
	s.metrics.OrdersCreated(string(method), len(orders))
	span.SetAttributes(
		attribute.String("checkout.payment_method", string(method)),
		attribute.Int("checkout.orders", len(orders)),
	)
	s.logger.Info("Checkout completed",
		zap.Int64("user_id", user.ID),
		zap.String("payment_method", string(method)),
		zap.Int64s("order_ids", orderIDs),
		zap.String("total", total.StringFixed(2)),
	)

	s.notifier.OrderPlaced(context.WithoutCancel(ctx), notify.OrderPlaced{
		UserID:        user.ID,
		Username:      user.Username,
		Email:         email,
		Phone:         phone,
		Total:         total,
		PaymentMethod: method,
		OrderIDs:      orderIDs,
		Lines:         notify.LinesFromOrders(orders),
	})

	result := &Result{
		Orders:        orders,
		OrderIDs:      orderIDs,
		Total:         total,
		PaymentMethod: method,
		Email:         email,
	}
	switch method {
	case domain.PaymentMethodCOD:
		result.Message = fmt.Sprintf("Order placed successfully! A confirmation email has been sent to %s.", email)
	case domain.PaymentMethodOnline:
		// The orders are committed; a lost session only surfaces when the user initiates payment.
		if err := s.sessions.SavePendingOrders(ctx, user.ID, orderIDs); err != nil {
			s.logger.Error("Failed to remember pending orders for payment",
				zap.Int64("user_id", user.ID),
				zap.Int64s("order_ids", orderIDs),
				zap.Error(err),
			)
		}
		result.Message = "Orders created. Complete payment to confirm them."
	}
	return result, nil
}

func parsePaymentMethod(raw string) (domain.PaymentMethod, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return domain.PaymentMethodCOD, nil
	}
	method := domain.PaymentMethod(raw)
	if !method.Valid() {
		return "", &ValidationError{Field: "payment_method", Message: "Payment method must be COD or ONLINE."}
	}
	return method, nil
}
