package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedCallback is returned when a callback lacks the structure
// needed to identify the transaction.
var ErrMalformedCallback = errors.New("mpesa: malformed callback")

// resultCodeUnknown is used when a callback omits or garbles ResultCode.
const resultCodeUnknown = 1

// Callback is the settlement outcome Daraja posts for an STK push.
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	ReceiptNumber     string
	PhoneNumber       string
	TransactionDate   string
}

// Succeeded reports whether the customer authorised the payment.
func (c Callback) Succeeded() bool {
	return c.ResultCode == 0
}

type callbackEnvelope struct {
	Body *struct {
		STKCallback *struct {
			MerchantRequestID string          `json:"MerchantRequestID"`
			CheckoutRequestID string          `json:"CheckoutRequestID"`
			ResultCode        json.RawMessage `json:"ResultCode"`
			ResultDesc        string          `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []metadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type metadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// ParseCallback decodes a callback body. Metadata items are matched by name;
// absent items leave Amount at zero and the strings empty.
func ParseCallback(body []byte) (*Callback, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	if env.Body == nil {
		return nil, fmt.Errorf("%w: missing Body", ErrMalformedCallback)
	}
	stk := env.Body.STKCallback
	if stk == nil {
		return nil, fmt.Errorf("%w: missing stkCallback", ErrMalformedCallback)
	}
	if strings.TrimSpace(stk.CheckoutRequestID) == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}

	cb := &Callback{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: strings.TrimSpace(stk.CheckoutRequestID),
		ResultCode:        parseResultCode(stk.ResultCode),
		ResultDesc:        stk.ResultDesc,
		Amount:            decimal.Zero,
	}
	if stk.CallbackMetadata == nil {
		return cb, nil
	}
	for _, item := range stk.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if amount, err := decimal.NewFromString(rawText(item.Value)); err == nil {
				cb.Amount = amount
			}
		case "MpesaReceiptNumber":
			cb.ReceiptNumber = rawText(item.Value)
		case "PhoneNumber":
			cb.PhoneNumber = rawText(item.Value)
		case "TransactionDate":
			cb.TransactionDate = rawText(item.Value)
		}
	}
	return cb, nil
}

func parseResultCode(raw json.RawMessage) int {
	code, err := strconv.Atoi(rawText(raw))
	if err != nil {
		return resultCodeUnknown
	}
	return code
}

// rawText returns a JSON string's contents or a scalar's literal text.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}
