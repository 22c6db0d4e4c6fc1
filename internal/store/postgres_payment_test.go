package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

func TestPostgresStore_ReconcilePayment_SettlesAllOrdersOfTransaction(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	params := RecordPaymentParams{
		TransactionID: "ws_1",
		Amount:        decimal.NewFromInt(1),
		ReceiptNumber: "NLJ7RT61SV",
		PhoneNumber:   "254708374149",
		Status:        domain.PaymentStatusCompleted,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shop.payments")).
		WithArgs("ws_1", decimal.NewFromInt(1), "NLJ7RT61SV", "254708374149", "completed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE shop.orders SET paid = $1, status = $2, payment_id = $3 WHERE transaction_id = $4")).
		WithArgs(true, "Processing", int64(9), "ws_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(int64(1), int64(5)).AddRow(int64(2), int64(5)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shop.payments SET order_id = $1, user_id = $2 WHERE id = $3")).
		WithArgs(int64(1), int64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.ReconcilePayment(context.Background(), params)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Duplicate)
	assert.Equal(t, 2, result.OrdersUpdated)
	assert.Equal(t, int64(9), result.Payment.ID)
	require.NotNil(t, result.Payment.OrderID)
	assert.Equal(t, int64(1), *result.Payment.OrderID)
	assert.Equal(t, int64(5), *result.Payment.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReconcilePayment_FailureWithoutOrders(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shop.payments")).
		WithArgs("ws_unknown", decimal.Zero, "", "", "failed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE shop.orders SET paid = $1")).
		WithArgs(false, "Failed", int64(3), "ws_unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
	mock.ExpectCommit()

	result, err := store.ReconcilePayment(context.Background(), RecordPaymentParams{
		TransactionID: "ws_unknown",
		Amount:        decimal.Zero,
		Status:        domain.PaymentStatusFailed,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.OrdersUpdated)
	assert.Nil(t, result.Payment.OrderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReconcilePayment_RedeliveryChangesNothing(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shop.payments")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM shop.payments WHERE transaction_id = $1")).
		WithArgs("ws_1").
		WillReturnRows(sqlmock.NewRows(paymentRowColumns).
			AddRow(int64(9), int64(1), int64(5), "1.00", "ws_1", "NLJ7RT61SV", "254708374149", "completed", time.Now()))
	mock.ExpectRollback()

	result, err := store.ReconcilePayment(context.Background(), RecordPaymentParams{
		TransactionID: "ws_1",
		Amount:        decimal.NewFromInt(1),
		ReceiptNumber: "NLJ7RT61SV",
		PhoneNumber:   "254708374149",
		Status:        domain.PaymentStatusCompleted,
	})

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, 0, result.OrdersUpdated)
	assert.Equal(t, int64(9), result.Payment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
