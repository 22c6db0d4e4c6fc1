// Package notify tells customers about their orders. Messages are rendered
// here and handed to a publisher; delivery (SMTP, SMS gateway) belongs to
// the consumer of the published events. Every failure is logged and
// counted, never returned.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
	"storefront-service/internal/metrics"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	EventOrderConfirmationEmail = "order_confirmation_email"
	EventOrderSMS               = "order_sms"
)

// Line is one ordered product as shown to the customer.
type Line struct {
	ProductName string
	Quantity    int
	Size        string
	Amount      decimal.Decimal
}

// LinesFromOrders describes orders using their checkout unit prices.
func LinesFromOrders(orders []domain.Order) []Line {
	lines := make([]Line, 0, len(orders))
	for _, o := range orders {
		name := "Product no longer listed"
		if o.Product != nil {
			name = o.Product.Name
		}
		lines = append(lines, Line{
			ProductName: name,
			Quantity:    o.Quantity,
			Size:        o.Size,
			Amount:      o.SnapshotTotal(),
		})
	}
	return lines
}

// OrderPlaced describes a completed checkout.
type OrderPlaced struct {
	UserID        int64
	Username      string
	Email         string
	Phone         string
	Total         decimal.Decimal
	PaymentMethod domain.PaymentMethod
	OrderIDs      []int64
	Lines         []Line
}

// Event is the message published for one notification.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Channel    string    `json:"channel"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     int64     `json:"user_id"`
	OrderIDs   []int64   `json:"order_ids"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
}

// Publisher hands an event to the delivery pipeline.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// Dispatcher renders and publishes order notifications.
type Dispatcher struct {
	publisher Publisher
	shopName  string
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewDispatcher(publisher Publisher, shopName string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		publisher: publisher,
		shopName:  shopName,
		timeout:   timeout,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// OrderPlaced sends the confirmation email and SMS. A channel whose
// recipient is empty is skipped.
func (d *Dispatcher) OrderPlaced(ctx context.Context, n OrderPlaced) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "notify.OrderPlaced")
	defer span.End()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if n.Email != "" {
		subject, body := d.RenderEmail(n)
		d.publish(ctx, ChannelEmail, n, Event{
			Type:      EventOrderConfirmationEmail,
			Recipient: n.Email,
			Subject:   subject,
			Body:      body,
		})
	}
	if n.Phone != "" {
		d.publish(ctx, ChannelSMS, n, Event{
			Type:      EventOrderSMS,
			Recipient: n.Phone,
			Body:      d.RenderSMS(n),
		})
	}
}

func (d *Dispatcher) publish(ctx context.Context, channel string, n OrderPlaced, event Event) {
	event.ID = uuid.NewString()
	event.Channel = channel
	event.OccurredAt = d.now().UTC()
	event.UserID = n.UserID
	event.OrderIDs = n.OrderIDs

	if err := d.publisher.Publish(ctx, fmt.Sprintf("%d", n.UserID), event); err != nil {
		d.metrics.NotificationFailed(channel)
		d.logger.Error("Failed to send order notification",
			zap.String("channel", channel),
			zap.String("event_id", event.ID),
			zap.Int64("user_id", n.UserID),
			zap.Error(err),
		)
		return
	}
	d.logger.Info("Order notification sent",
		zap.String("channel", channel),
		zap.String("event_id", event.ID),
		zap.Int64("user_id", n.UserID),
	)
}

// RenderEmail builds the confirmation subject and body.
func (d *Dispatcher) RenderEmail(n OrderPlaced) (subject, body string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s!\n\n", n.Username)
	fmt.Fprintf(&b, "Thank you for shopping with %s! We're thrilled to confirm your order.\n\n", d.shopName)
	b.WriteString("Your Products:\n")
	for _, l := range n.Lines {
		fmt.Fprintf(&b, "• %s x %d (Size: %s) - KES %s\n", l.ProductName, l.Quantity, l.Size, l.Amount.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: KES %s\n", n.Total.StringFixed(2))
	fmt.Fprintf(&b, "Payment method: %s\n\n", n.PaymentMethod)
	b.WriteString("We can't wait for you to enjoy your purchase!\n\n")
	fmt.Fprintf(&b, "With love,\n%s Team", d.shopName)
	return fmt.Sprintf("Your %s Order Confirmation", d.shopName), b.String()
}

// RenderSMS builds the order SMS text.
func (d *Dispatcher) RenderSMS(n OrderPlaced) string {
	return fmt.Sprintf("%s: Hi %s, your order totaling KES %s has been placed successfully!",
		d.shopName, n.Username, n.Total.StringFixed(2))
}
