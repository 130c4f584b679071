// Package payments holds thin HTTP adapters for the external checkout
// providers. Both clients take an injectable http.Client so tests can point
// them at a local server.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/businesssadigital-oss/backendpay/pkg/config"
	apperrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
)

const defaultHTTPTimeout = 30 * time.Second

// ChargilyClient creates hosted checkout sessions on Chargily Pay.
type ChargilyClient struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
	rateDZD    int64
}

// NewChargilyClient validates the configuration and returns a ready client.
func NewChargilyClient(cfg config.ChargilyConfig, httpClient *http.Client) (*ChargilyClient, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("chargily secret key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("chargily base url is required")
	}
	rate := int64(cfg.RateDZD)
	if rate <= 0 {
		rate = 200
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &ChargilyClient{
		httpClient: httpClient,
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		rateDZD:    rate,
	}, nil
}

// CheckoutRequest describes the session the storefront asked for. Amount is
// the catalog price in USD; the client converts to whole dinars.
type CheckoutRequest struct {
	Amount      decimal.Decimal
	Description string
	SuccessURL  string
	FailureURL  string
}

// CheckoutSession is the hosted payment page handed back to the client.
type CheckoutSession struct {
	CheckoutURL string `json:"checkout_url"`
}

type chargilyCheckoutPayload struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	SuccessURL  string `json:"success_url"`
	FailureURL  string `json:"failure_url"`
}

type chargilyErrorBody struct {
	Message string `json:"message"`
}

// CreateCheckout opens a DZD checkout session for the given USD amount.
func (c *ChargilyClient) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.Amount.Sign() <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "amount must be positive")
	}
	if req.Description == "" {
		req.Description = "Product purchase"
	}
	if req.SuccessURL == "" {
		req.SuccessURL = "http://localhost:3000/success"
	}
	if req.FailureURL == "" {
		req.FailureURL = "http://localhost:3000/failed"
	}

	amountDZD := req.Amount.Mul(decimal.NewFromInt(c.rateDZD)).Round(0).IntPart()
	payload := chargilyCheckoutPayload{
		Amount:      amountDZD,
		Currency:    "dzd",
		Description: req.Description,
		SuccessURL:  req.SuccessURL,
		FailureURL:  req.FailureURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "chargily checkout request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody chargilyErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.Message
		if msg == "" {
			msg = fmt.Sprintf("chargily responded %d", resp.StatusCode)
		}
		return nil, apperrors.New(apperrors.CodeDependency, msg)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "decoding chargily response")
	}
	if session.CheckoutURL == "" {
		return nil, apperrors.New(apperrors.CodeDependency, "chargily returned no checkout url")
	}
	return &session, nil
}
