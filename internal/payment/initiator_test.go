package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/mpesa"
	"storefront-service/internal/session"
	"storefront-service/internal/store/storetest"
)

type MockPushClient struct {
	mock.Mock
}

func (m *MockPushClient) STKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*mpesa.STKPushResponse, error) {
	args := m.Called(ctx, phone, amount, accountReference, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mpesa.STKPushResponse), args.Error(1)
}

type initiatorFixture struct {
	initiator *Initiator
	sessions  *storetest.MockSessionStore
	orders    *storetest.MockOrderStorer
	profiles  *storetest.MockProfileStorer
	client    *MockPushClient
}

func newInitiatorFixture() *initiatorFixture {
	f := &initiatorFixture{
		sessions: new(storetest.MockSessionStore),
		orders:   new(storetest.MockOrderStorer),
		profiles: new(storetest.MockProfileStorer),
		client:   new(MockPushClient),
	}
	f.initiator = NewInitiator(f.sessions, f.orders, f.profiles, f.client, nil, nil)
	return f
}

var buyer = domain.User{ID: 1, Username: "wanjiku", Email: "wanjiku@example.com"}

func pendingOnline(id int64, quantity int, snapshot, current string) domain.Order {
	return domain.Order{
		ID:            id,
		UserID:        1,
		Quantity:      quantity,
		PaymentMethod: domain.PaymentMethodOnline,
		Status:        domain.OrderStatusPending,
		UnitPrice:     decimal.RequireFromString(snapshot),
		Product:       &domain.Product{ID: id, Price: decimal.RequireFromString(current), Available: true},
	}
}

func accepted(id string) *mpesa.STKPushResponse {
	return &mpesa.STKPushResponse{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: id,
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}
}

func TestInitiator_PushesLiveTotalAndStampsOrders(t *testing.T) {
	f := newInitiatorFixture()
	f.sessions.On("PendingOrders", mock.Anything, int64(1)).Return([]int64{1, 2}, nil).Once()
	f.profiles.On("GetOrCreateProfile", mock.Anything, int64(1)).
		Return(&domain.Profile{UserID: 1, PhoneNumber: storetest.PtrTo("0712345678")}, nil).Once()
	f.orders.On("ListOrdersByIDs", mock.Anything, int64(1), []int64{1, 2}).Return([]domain.Order{
		pendingOnline(1, 2, "2000", "2000"),
		pendingOnline(2, 1, "800", "800.50"),
	}, nil).Once()
	f.client.On("STKPush", mock.Anything, "0712345678", int64(4801), "OrderBatch-1,2", "Payment for goods").
		Return(accepted("ws_1"), nil).Once()
	f.orders.On("AttachTransactionID", mock.Anything, []int64{1, 2}, "ws_1").Return(int64(2), nil).Once()

	result, err := f.initiator.InitiateSTKPush(context.Background(), buyer)

	require.NoError(t, err)
	assert.Equal(t, "ws_1", result.CheckoutRequestID)
	assert.Equal(t, int64(4801), result.Amount, "live total 4800.50 rounds up")
	assert.Equal(t, []int64{1, 2}, result.OrderIDs)
	f.orders.AssertExpectations(t)
	f.client.AssertExpectations(t)
}

func TestInitiator_SkipsSettledOrders(t *testing.T) {
	f := newInitiatorFixture()
	paid := pendingOnline(1, 1, "500", "500")
	paid.Paid = true
	paid.Status = domain.OrderStatusProcessing
	f.sessions.On("PendingOrders", mock.Anything, int64(1)).Return([]int64{1, 2}, nil).Once()
	f.profiles.On("GetOrCreateProfile", mock.Anything, int64(1)).
		Return(&domain.Profile{UserID: 1, PhoneNumber: storetest.PtrTo("0712345678")}, nil).Once()
	f.orders.On("ListOrdersByIDs", mock.Anything, int64(1), []int64{1, 2}).
		Return([]domain.Order{paid, pendingOnline(2, 1, "800", "800")}, nil).Once()
	f.client.On("STKPush", mock.Anything, "0712345678", int64(800), "OrderBatch-2", "Payment for goods").
		Return(accepted("ws_2"), nil).Once()
	f.orders.On("AttachTransactionID", mock.Anything, []int64{2}, "ws_2").Return(int64(1), nil).Once()

	_, err := f.initiator.InitiateSTKPush(context.Background(), buyer)

	require.NoError(t, err)
	f.client.AssertExpectations(t)
}

func TestInitiator_RefusesWhilePushOutstanding(t *testing.T) {
	f := newInitiatorFixture()
	first, second := pendingOnline(1, 1, "500", "500"), pendingOnline(2, 1, "800", "800")
	first.TransactionID = storetest.PtrTo("ws_1")
	second.TransactionID = storetest.PtrTo("ws_1")
	f.sessions.On("PendingOrders", mock.Anything, int64(1)).Return([]int64{1, 2}, nil).Once()
	f.profiles.On("GetOrCreateProfile", mock.Anything, int64(1)).
		Return(&domain.Profile{UserID: 1, PhoneNumber: storetest.PtrTo("0712345678")}, nil).Once()
	f.orders.On("ListOrdersByIDs", mock.Anything, int64(1), []int64{1, 2}).Return([]domain.Order{first, second}, nil).Once()

	_, err := f.initiator.InitiateSTKPush(context.Background(), buyer)

	assert.True(t, errors.Is(err, ErrPaymentInProgress))
	assert.True(t, IsClientError(err))
	f.client.AssertNotCalled(t, "STKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "AttachTransactionID", mock.Anything, mock.Anything, mock.Anything)
	f.sessions.AssertNotCalled(t, "ClearPendingOrders", mock.Anything, mock.Anything)
}

func TestInitiator_NoPendingOrders(t *testing.T) {
	f := newInitiatorFixture()
	f.sessions.On("PendingOrders", mock.Anything, int64(1)).Return(nil, session.ErrNoPendingOrders).Once()

	_, err := f.initiator.InitiateSTKPush(context.Background(), buyer)

	assert.True(t, errors.Is(err, ErrNoPendingOrders))
	assert.True(t, IsClientError(err))
	f.client.AssertNotCalled(t, "STKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiator_AllSettledClearsSession(t *testing.T) {
	f := newInitiatorFixture()
	paid := pendingOnline(1, 1, "500", "500")
	paid.Paid = true
	f.sessions.On("PendingOrders", mock.Anything, int64(1)).Return([]int64{1}, nil).Once()
	f.profiles.On("GetOrCreateProfile", mock.Anything, int64(1)).
		Return(&domain.Profile{UserID: 1, PhoneNumber: storetest.PtrTo("0712345678")}, nil).Once()
	f.orders.On("ListOrdersByIDs", mock.Anything, int64(1), []int64{1}).Return([]domain.Order{paid}, nil).Once()
	f.sessions.On("ClearPendingOrders", mock.Anything, int64(1)).Return(nil).Once()

	_, err := f.initiator.InitiateSTKPush(context.Background(), buyer)

	assert.True(t, errors.Is(err, ErrNoPendingOrders))
	f.sessions.AssertExpectations(t)
}

func TestInitiator_PhoneNotSet(t *testing.T) {
	f := newInitiatorFixture()
	f.sessions.On("PendingOrders", mock.Anything, int64(1)).Return([]int64{1}, nil).Once()
	f.profiles.On("GetOrCreateProfile", mock.Anything, int64(1)).Return(&domain.Profile{UserID: 1}, nil).Once()

	_, err := f.initiator.InitiateSTKPush(context.Background(), buyer)

	assert.True(t, errors.Is(err, ErrPhoneNotSet))
	f.orders.AssertNotCalled(t, "ListOrdersByIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiator_ProviderFailureLeavesOrdersUnstamped(t *testing.T) {
	f := newInitiatorFixture()
	f.sessions.On("PendingOrders", mock.Anything, int64(1)).Return([]int64{1}, nil).Once()
	f.profiles.On("GetOrCreateProfile", mock.Anything, int64(1)).
		Return(&domain.Profile{UserID: 1, PhoneNumber: storetest.PtrTo("0712345678")}, nil).Once()
	f.orders.On("ListOrdersByIDs", mock.Anything, int64(1), []int64{1}).
		Return([]domain.Order{pendingOnline(1, 1, "500", "500")}, nil).Once()
	f.client.On("STKPush", mock.Anything, "0712345678", int64(500), "OrderBatch-1", "Payment for goods").
		Return(nil, &mpesa.APIError{StatusCode: 500, Message: "upstream timeout"}).Once()

	_, err := f.initiator.InitiateSTKPush(context.Background(), buyer)

	var apiErr *mpesa.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, IsClientError(err))
	f.orders.AssertNotCalled(t, "AttachTransactionID", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountReference(t *testing.T) {
	assert.Equal(t, "OrderBatch-1,2,3", AccountReference([]int64{1, 2, 3}))
	assert.Equal(t, "OrderBatch-42", AccountReference([]int64{42}))
}
