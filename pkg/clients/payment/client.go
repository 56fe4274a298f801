package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/phamqv/storefront/internal/config"
)

// Client exposes the payment gateway operations used by the application.
type Client interface {
	VerifyCapture(ctx context.Context, captureID string) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a payment gateway client using the provided configuration values.
func NewClient(cfg config.PaymentConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// captureResponse mirrors the gateway's capture lookup payload.
type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount struct {
		Value    string `json:"value"`
		Currency string `json:"currency_code"`
	} `json:"amount"`
}

// apiError represents a gateway error payload.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// VerifyCapture checks that the gateway shows the capture as completed before
// an order is marked paid.
func (c *APIClient) VerifyCapture(ctx context.Context, captureID string) error {
	result := new(captureResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get(fmt.Sprintf("/v2/captures/%s", captureID))
	if err != nil {
		return fmt.Errorf("lookup capture: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("payment gateway error: status=%d, code=%s, message=%s",
			resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Message)
	}

	if !strings.EqualFold(result.Status, "COMPLETED") {
		return fmt.Errorf("capture %s is %s, expected COMPLETED", captureID, result.Status)
	}

	return nil
}
