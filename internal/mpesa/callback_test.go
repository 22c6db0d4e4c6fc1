package mpesa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback_Success(t *testing.T) {
	body := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_1",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "MpesaReceiptNumber", "Value": "QWE123"},
						{"Name": "Balance"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254708374149},
						{"Name": "Amount", "Value": 500}
					]
				}
			}
		}
	}`

	cb, err := ParseCallback([]byte(body))

	require.NoError(t, err)
	assert.True(t, cb.Succeeded())
	assert.Equal(t, "ws_1", cb.CheckoutRequestID)
	assert.Equal(t, "500", cb.Amount.String())
	assert.Equal(t, "QWE123", cb.ReceiptNumber)
	assert.Equal(t, "254708374149", cb.PhoneNumber)
	assert.Equal(t, "20191219102115", cb.TransactionDate)
}

func TestParseCallback_CancelledWithoutMetadata(t *testing.T) {
	body := `{"Body":{"stkCallback":{"MerchantRequestID":"m","CheckoutRequestID":"ws_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`

	cb, err := ParseCallback([]byte(body))

	require.NoError(t, err)
	assert.False(t, cb.Succeeded())
	assert.Equal(t, 1032, cb.ResultCode)
	assert.True(t, cb.Amount.IsZero())
	assert.Empty(t, cb.ReceiptNumber)
}

func TestParseCallback_Defaults(t *testing.T) {
	cb, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_3","CallbackMetadata":{"Item":[{"Name":"Amount","Value":"oops"}]}}}}`))

	require.NoError(t, err)
	assert.Equal(t, 1, cb.ResultCode, "missing ResultCode is a failure")
	assert.True(t, cb.Amount.IsZero())

	cb, err = ParseCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_4","ResultCode":"0"}}}`))
	require.NoError(t, err)
	assert.True(t, cb.Succeeded())
}

func TestParseCallback_Malformed(t *testing.T) {
	bodies := map[string]string{
		"not json":            `Body=1`,
		"missing Body":        `{"stkCallback":{"CheckoutRequestID":"ws_1","ResultCode":0}}`,
		"missing stkCallback": `{"Body":{}}`,
		"missing checkout id": `{"Body":{"stkCallback":{"ResultCode":0}}}`,
		"wrong shape":         `{"Body":"nope"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			cb, err := ParseCallback([]byte(body))

			assert.True(t, errors.Is(err, ErrMalformedCallback), "got %v", err)
			assert.Nil(t, cb)
		})
	}
}
