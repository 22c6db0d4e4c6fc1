// Package mpesa speaks the Safaricom Daraja STK Push protocol: OAuth token
// exchange, request signing, push submission and callback parsing.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	tokenPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	timestampFmt = "20060102150405"
)

// eat is East Africa Time, the zone Daraja validates timestamps against.
var eat = time.FixedZone("EAT", 3*60*60)

var (
	ErrInvalidPhone  = errors.New("mpesa: invalid phone number")
	ErrNoAccessToken = errors.New("mpesa: token response carried no access_token")
	ErrNoCheckoutID  = errors.New("mpesa: push response carried no CheckoutRequestID")
	ErrInvalidAmount = errors.New("mpesa: amount must be at least 1")
)

// APIError is a non-2xx response from Daraja.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mpesa: provider returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("mpesa: provider returned %d: %s", e.StatusCode, e.Message)
}

// Config holds Daraja credentials and push parameters.
type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackURL     string
	TransactionType string
	Timeout         time.Duration
}

// Client calls the Daraja API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "CustomerPayBillOnline"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		logger:     logger,
	}
}

// Timestamp formats t as YYYYMMDDHHmmss in East Africa Time.
func Timestamp(t time.Time) string {
	return t.In(eat).Format(timestampFmt)
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// NormalizePhone converts 07XXXXXXXX, 7XXXXXXXX, +2547XXXXXXXX and
// 2547XXXXXXXX (and the 01 ranges) to the 254XXXXXXXXX form Daraja expects.
func NormalizePhone(phone string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+")
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
		}
	}
	switch {
	case len(p) == 12 && strings.HasPrefix(p, "254"):
	case len(p) == 10 && strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case len(p) == 9 && (p[0] == '7' || p[0] == '1'):
		p = "254" + p
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	if p[3] != '7' && p[3] != '1' {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return p, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken exchanges the consumer key and secret for a bearer token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("mpesa: failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return "", fmt.Errorf("mpesa: token request failed: %w", err)
	}
	if tr.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return tr.AccessToken, nil
}

// STKPushRequest is the processrequest body.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is Daraja's synchronous acknowledgement of a push.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKPush prompts phone to authorise amount. The response always carries a
// CheckoutRequestID when err is nil.
func (c *Client) STKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*STKPushResponse, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "mpesa.STKPush")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("mpesa.amount", amount),
		attribute.String("mpesa.account_reference", accountReference),
	)

	resp, err := c.stkPush(ctx, phone, amount, accountReference, description)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("mpesa.checkout_request_id", resp.CheckoutRequestID))
	return resp, nil
}

func (c *Client) stkPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*STKPushResponse, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}
	msisdn, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := Timestamp(c.now())
	body, err := json.Marshal(STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   c.cfg.TransactionType,
		Amount:            amount,
		PartyA:            msisdn,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	})
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var pr STKPushResponse
	if err := c.do(req, &pr); err != nil {
		return nil, fmt.Errorf("mpesa: push request failed: %w", err)
	}
	if pr.CheckoutRequestID == "" {
		return nil, ErrNoCheckoutID
	}

	c.logger.Info("STK push accepted",
		zap.String("checkout_request_id", pr.CheckoutRequestID),
		zap.String("merchant_request_id", pr.MerchantRequestID),
		zap.Int64("amount", amount),
	)
	return &pr, nil
}

type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: strings.TrimSpace(string(data))}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.ErrorMessage != "" {
			apiErr.Code = eb.ErrorCode
			apiErr.Message = eb.ErrorMessage
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
