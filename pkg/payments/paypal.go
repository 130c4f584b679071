package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/businesssadigital-oss/backendpay/pkg/config"
	apperrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
)

// PayPalClient drives the create/capture order flow against the PayPal
// checkout API. Access tokens are fetched per call; the storefront volume
// does not justify caching them.
type PayPalClient struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	baseURL      string
}

func NewPayPalClient(cfg config.PayPalConfig, httpClient *http.Client) (*PayPalClient, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("paypal client id and secret are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("paypal base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &PayPalClient{
		httpClient:   httpClient,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type paypalErrorBody struct {
	Message string `json:"message"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

func (b paypalErrorBody) text(status int) string {
	if b.Message != "" {
		return b.Message
	}
	if len(b.Details) > 0 && b.Details[0].Issue != "" {
		return b.Details[0].Issue
	}
	return fmt.Sprintf("paypal responded %d", status)
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependency, err, "paypal token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.New(apperrors.CodeDependency, fmt.Sprintf("paypal token endpoint responded %d", resp.StatusCode))
	}
	var token paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependency, err, "decoding paypal token response")
	}
	if token.AccessToken == "" {
		return "", apperrors.New(apperrors.CodeDependency, "paypal returned an empty access token")
	}
	return token.AccessToken, nil
}

// CreateOrder opens a CAPTURE-intent order for the given USD amount. The raw
// provider response is passed through so the storefront SDK can consume it.
func (c *PayPalClient) CreateOrder(ctx context.Context, amount decimal.Decimal, description string) (json.RawMessage, error) {
	if amount.Sign() <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "amount must be positive")
	}
	if description == "" {
		description = "Product purchase"
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"description": description,
			"amount": map[string]string{
				"currency_code": "USD",
				"value":         amount.StringFixed(2),
			},
		}},
	}
	return c.post(ctx, "/v2/checkout/orders", token, payload)
}

// CaptureOrder finalizes a previously created order.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/v2/checkout/orders/"+orderID+"/capture", token, nil)
}

func (c *PayPalClient) post(ctx context.Context, path, token string, payload any) (json.RawMessage, error) {
	var body *strings.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(string(raw))
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "paypal request failed")
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "decoding paypal response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody paypalErrorBody
		_ = json.Unmarshal(raw, &errBody)
		return nil, apperrors.New(apperrors.CodeDependency, errBody.text(resp.StatusCode))
	}
	return raw, nil
}
