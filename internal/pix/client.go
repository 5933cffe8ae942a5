package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client calls the external PIX payment provider's REST API,
// authenticated with a static API key header.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type chargeRequest struct {
	Reference  string `json:"reference"`
	Amount     string `json:"amount"`
	PixKey     string `json:"pix_key"`
	PixKeyType string `json:"pix_key_type,omitempty"`
}

type chargeResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// CreateCharge registers a deposit charge with the provider
func (c *Client) CreateCharge(ctx context.Context, reference string, amount decimal.Decimal, pixKey string) (*Charge, error) {
	body := chargeRequest{
		Reference: reference,
		Amount:    amount.StringFixed(2),
		PixKey:    pixKey,
	}
	return c.post(ctx, "/v1/charges", body)
}

// CreateTransfer initiates an outbound PIX transfer
func (c *Client) CreateTransfer(ctx context.Context, reference string, amount decimal.Decimal, pixKey, pixKeyType string) (*Charge, error) {
	body := chargeRequest{
		Reference:  reference,
		Amount:     amount.StringFixed(2),
		PixKey:     pixKey,
		PixKeyType: pixKeyType,
	}
	return c.post(ctx, "/v1/transfers", body)
}

// GetStatus fetches the current status of a charge or transfer
func (c *Client) GetStatus(ctx context.Context, providerTxID string) (*Charge, error) {
	url := fmt.Sprintf("%s/v1/charges/%s", c.baseURL, providerTxID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch charge status: %w", err)
	}
	defer resp.Body.Close()

	return c.decode(resp)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*Charge, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.decode(resp)
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) decode(resp *http.Response) (*Charge, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider API error: %d - %s", resp.StatusCode, string(body))
	}

	var cr chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	return &Charge{
		ProviderTxID: cr.ID,
		Status:       ChargeStatus(cr.Status),
		FailReason:   cr.FailReason,
	}, nil
}
