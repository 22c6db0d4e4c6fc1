package store

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

// ListProductsParams holds parameters for listing products (pagination and filtering).
type ListProductsParams struct {
	Limit       int
	Offset      int
	SearchQuery *string // Case-insensitive match on name
	CategoryID  *int64
	Available   *bool
	SortBy      string // "name", "price" or "id"
	SortOrder   string // "asc" or "desc"
}

// CatalogStorer is the read-only catalog collaborator.
type CatalogStorer interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) // Returns products and total count
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
}

// CartStorer defines the database operations for cart lines.
// Every operation is scoped to the owning user.
type CartStorer interface {
	AddCartItem(ctx context.Context, userID, productID int64, size string) (*domain.CartItem, error)
	ListCartItems(ctx context.Context, userID int64) ([]domain.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error
	UpdateCartItemSize(ctx context.Context, userID, itemID int64, size string) error
	DeleteCartItem(ctx context.Context, userID, itemID int64) error
}

// OrderStorer defines the database operations for orders.
type OrderStorer interface {
	// CreateOrdersFromCart inserts orders and deletes the given cart lines in one transaction.
	CreateOrdersFromCart(ctx context.Context, userID int64, cartItemIDs []int64, orders []domain.Order) ([]domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListOrdersByIDs(ctx context.Context, userID int64, ids []int64) ([]domain.Order, error)
	// AttachTransactionID stamps the provider correlation id onto orders.
	AttachTransactionID(ctx context.Context, orderIDs []int64, transactionID string) (int64, error)
}

// RecordPaymentParams describes a settlement reported by the payment provider.
type RecordPaymentParams struct {
	TransactionID string
	Amount        decimal.Decimal
	ReceiptNumber string
	PhoneNumber   string
	Status        domain.PaymentStatus
}

// ReconcileResult reports what a callback changed.
type ReconcileResult struct {
	Payment       *domain.Payment
	OrdersUpdated int
	Duplicate     bool // The transaction id had already been recorded
}

// PaymentStorer defines the database operations for payments.
type PaymentStorer interface {
	// ReconcilePayment records the payment if absent and settles every order sharing its transaction id.
	ReconcilePayment(ctx context.Context, params RecordPaymentParams) (*ReconcileResult, error)
}

// ProfileStorer defines the database operations for user profiles.
type ProfileStorer interface {
	GetOrCreateProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	SetPhoneNumber(ctx context.Context, userID int64, phone string) error
}
