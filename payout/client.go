package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/shopspring/decimal"
)

// Client talks to the payout rail over HTTP. Callers bound the call with a
// context deadline; the reference doubles as the provider-side idempotency
// key.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient() *Client {
	return &Client{
		endpoint: os.Getenv("PAYOUT_ENDPOINT"),
		apiKey:   os.Getenv("PAYOUT_API_KEY"),
		http:     &http.Client{},
	}
}

type payoutRequest struct {
	UPI       string          `json:"upi"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

type payoutResponse struct {
	ProviderRef string `json:"provider_ref"`
}

func (c *Client) Payout(ctx context.Context, upi string, amount decimal.Decimal, reference string) (string, error) {
	body, err := json.Marshal(payoutRequest{
		UPI:       upi,
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/payouts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", reference)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payout: provider returned %d", resp.StatusCode)
	}

	var parsed payoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	return parsed.ProviderRef, nil
}
