package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
	"storefront-service/internal/store/storetest"
)

func newTestService() (*Service, *storetest.MockCatalogStorer, *storetest.MockCartStorer) {
	catalog := new(storetest.MockCatalogStorer)
	carts := new(storetest.MockCartStorer)
	return NewService(catalog, carts, nil), catalog, carts
}

func dress() *domain.Product {
	return &domain.Product{
		ID:             7,
		Name:           "Kitenge Dress",
		Price:          decimal.RequireFromString("2500"),
		SalePrice:      decimal.NewNullDecimal(decimal.RequireFromString("2000")),
		Available:      true,
		Quantity:       4,
		AvailableSizes: "S,M,L",
	}
}

func TestService_AddToCart(t *testing.T) {
	svc, catalog, carts := newTestService()
	catalog.On("GetProductByID", mock.Anything, int64(7)).Return(dress(), nil).Once()
	carts.On("AddCartItem", mock.Anything, int64(1), int64(7), "M").
		Return(&domain.CartItem{ID: 10, UserID: 1, ProductID: 7, Size: "M", Quantity: 1}, nil).Once()

	item, err := svc.AddToCart(context.Background(), 1, 7, " M ")

	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, "Kitenge Dress", item.Product.Name)
	catalog.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestService_AddToCart_Rejections(t *testing.T) {
	unavailable := dress()
	unavailable.Available = false

	tests := []struct {
		name      string
		size      string
		product   *domain.Product
		lookupErr error
		wantErr   error
	}{
		{name: "empty size", size: "", wantErr: ErrSizeRequired},
		{name: "blank size", size: "  ", wantErr: ErrSizeRequired},
		{name: "unknown product", size: "M", lookupErr: store.ErrProductNotFound, wantErr: ErrProductUnavailable},
		{name: "unavailable product", size: "M", product: unavailable, wantErr: ErrProductUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, catalog, carts := newTestService()
			if tc.product != nil || tc.lookupErr != nil {
				catalog.On("GetProductByID", mock.Anything, int64(7)).Return(tc.product, tc.lookupErr).Once()
			}

			item, err := svc.AddToCart(context.Background(), 1, 7, tc.size)

			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			assert.Nil(t, item)
			carts.AssertNotCalled(t, "AddCartItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_UpdateQuantity_ClampsToOne(t *testing.T) {
	for _, requested := range []int{0, -3, 1} {
		svc, _, carts := newTestService()
		carts.On("UpdateCartItemQuantity", mock.Anything, int64(1), int64(10), 1).Return(nil).Once()

		require.NoError(t, svc.UpdateQuantity(context.Background(), 1, 10, requested))
		carts.AssertExpectations(t)
	}
}

func TestService_ForeignItemsAreIgnored(t *testing.T) {
	svc, _, carts := newTestService()
	carts.On("UpdateCartItemQuantity", mock.Anything, int64(2), int64(10), 4).Return(store.ErrCartItemNotFound).Once()
	carts.On("UpdateCartItemSize", mock.Anything, int64(2), int64(10), "L").Return(store.ErrCartItemNotFound).Once()
	carts.On("DeleteCartItem", mock.Anything, int64(2), int64(10)).Return(store.ErrCartItemNotFound).Once()

	assert.NoError(t, svc.UpdateQuantity(context.Background(), 2, 10, 4))
	assert.NoError(t, svc.UpdateSize(context.Background(), 2, 10, "L"))
	assert.NoError(t, svc.RemoveItem(context.Background(), 2, 10))
	carts.AssertExpectations(t)
}

func TestService_UpdateSize_RequiresSize(t *testing.T) {
	svc, _, carts := newTestService()

	err := svc.UpdateSize(context.Background(), 1, 10, "")

	assert.True(t, errors.Is(err, ErrSizeRequired))
	carts.AssertNotCalled(t, "UpdateCartItemSize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_StoreFailuresPropagate(t *testing.T) {
	svc, _, carts := newTestService()
	carts.On("DeleteCartItem", mock.Anything, int64(1), int64(10)).Return(errors.New("connection refused")).Once()

	assert.Error(t, svc.RemoveItem(context.Background(), 1, 10))
}

func TestService_ListCart(t *testing.T) {
	svc, _, carts := newTestService()
	necklace := domain.Product{ID: 8, Name: "Beaded Necklace", Price: decimal.RequireFromString("800"), Available: true}
	carts.On("ListCartItems", mock.Anything, int64(1)).Return([]domain.CartItem{
		{ID: 1, ProductID: 7, Size: "M", Quantity: 2, Product: *dress()},
		{ID: 2, ProductID: 8, Size: "OS", Quantity: 1, Product: necklace},
	}, nil).Once()

	view, err := svc.ListCart(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "2000", view.Items[0].UnitPrice.String())
	assert.Equal(t, "4000", view.Items[0].LineTotal.String())
	assert.Equal(t, "800", view.Items[1].LineTotal.String())
	assert.Equal(t, "4800", view.GrandTotal.String())
}

func TestService_ListCart_Empty(t *testing.T) {
	svc, _, carts := newTestService()
	carts.On("ListCartItems", mock.Anything, int64(1)).Return([]domain.CartItem{}, nil).Once()

	view, err := svc.ListCart(context.Background(), 1)

	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.GrandTotal.IsZero())
}
