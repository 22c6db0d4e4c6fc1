// Package storetest provides testify mocks of the store interfaces.
package storetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// MockCatalogStorer is a mock implementation of store.CatalogStorer
type MockCatalogStorer struct {
	mock.Mock
}

func (m *MockCatalogStorer) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Error(1)
}

func (m *MockCatalogStorer) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCatalogStorer) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, int, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Int(1), args.Error(2)
}

func (m *MockCatalogStorer) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// MockCartStorer is a mock implementation of store.CartStorer
type MockCartStorer struct {
	mock.Mock
}

func (m *MockCartStorer) AddCartItem(ctx context.Context, userID, productID int64, size string) (*domain.CartItem, error) {
	args := m.Called(ctx, userID, productID, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartItem), args.Error(1)
}

func (m *MockCartStorer) ListCartItems(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	args := m.Called(ctx, userID)
	var items []domain.CartItem
	if arg0 := args.Get(0); arg0 != nil {
		items = arg0.([]domain.CartItem)
	}
	return items, args.Error(1)
}

func (m *MockCartStorer) UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	return m.Called(ctx, userID, itemID, quantity).Error(0)
}

func (m *MockCartStorer) UpdateCartItemSize(ctx context.Context, userID, itemID int64, size string) error {
	return m.Called(ctx, userID, itemID, size).Error(0)
}

func (m *MockCartStorer) DeleteCartItem(ctx context.Context, userID, itemID int64) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

// MockOrderStorer is a mock implementation of store.OrderStorer
type MockOrderStorer struct {
	mock.Mock
}

func (m *MockOrderStorer) CreateOrdersFromCart(ctx context.Context, userID int64, cartItemIDs []int64, orders []domain.Order) ([]domain.Order, error) {
	args := m.Called(ctx, userID, cartItemIDs, orders)
	var created []domain.Order
	switch arg0 := args.Get(0).(type) {
	case func(context.Context, int64, []int64, []domain.Order) []domain.Order:
		created = arg0(ctx, userID, cartItemIDs, orders)
	case []domain.Order:
		created = arg0
	}
	return created, args.Error(1)
}

func (m *MockOrderStorer) ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	var orders []domain.Order
	if arg0 := args.Get(0); arg0 != nil {
		orders = arg0.([]domain.Order)
	}
	return orders, args.Error(1)
}

func (m *MockOrderStorer) ListOrdersByIDs(ctx context.Context, userID int64, ids []int64) ([]domain.Order, error) {
	args := m.Called(ctx, userID, ids)
	var orders []domain.Order
	if arg0 := args.Get(0); arg0 != nil {
		orders = arg0.([]domain.Order)
	}
	return orders, args.Error(1)
}

func (m *MockOrderStorer) AttachTransactionID(ctx context.Context, orderIDs []int64, transactionID string) (int64, error) {
	args := m.Called(ctx, orderIDs, transactionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentStorer is a mock implementation of store.PaymentStorer
type MockPaymentStorer struct {
	mock.Mock
}

func (m *MockPaymentStorer) ReconcilePayment(ctx context.Context, params store.RecordPaymentParams) (*store.ReconcileResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ReconcileResult), args.Error(1)
}

// MockProfileStorer is a mock implementation of store.ProfileStorer
type MockProfileStorer struct {
	mock.Mock
}

func (m *MockProfileStorer) GetOrCreateProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileStorer) SetPhoneNumber(ctx context.Context, userID int64, phone string) error {
	return m.Called(ctx, userID, phone).Error(0)
}

// MockSessionStore is a mock implementation of session.Store
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) SavePendingOrders(ctx context.Context, userID int64, orderIDs []int64) error {
	return m.Called(ctx, userID, orderIDs).Error(0)
}

func (m *MockSessionStore) PendingOrders(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	var ids []int64
	if arg0 := args.Get(0); arg0 != nil {
		ids = arg0.([]int64)
	}
	return ids, args.Error(1)
}

func (m *MockSessionStore) ClearPendingOrders(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

// PtrTo returns a pointer to v.
func PtrTo[T any](v T) *T {
	return &v
}
