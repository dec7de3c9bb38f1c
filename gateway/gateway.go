package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nexclub/nexclub/config"
)

type Status = string

var (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Gateway verifies the state of a payment order. It decides whether a
// distribution may run; it never computes amounts.
type Gateway interface {
	VerifyPaymentStatus(ctx context.Context, orderRef string) (Status, error)
}

// HTTPGateway checks order status against the payment provider. Paid results
// are terminal and cached in redis, so callback retries skip the provider
// round trip.
type HTTPGateway struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cache    *config.CacheService
}

func NewHTTPGateway(cache *config.CacheService) *HTTPGateway {
	return &HTTPGateway{
		endpoint: os.Getenv("GATEWAY_ENDPOINT"),
		apiKey:   os.Getenv("GATEWAY_API_KEY"),
		http:     &http.Client{Timeout: 10 * time.Second},
		cache:    cache,
	}
}

type statusResponse struct {
	Status Status `json:"status"`
}

func (g *HTTPGateway) VerifyPaymentStatus(ctx context.Context, orderRef string) (Status, error) {
	cacheKey := "gateway:status:" + orderRef

	if g.cache != nil {
		var cached Status
		if err := g.cache.GetKey(cacheKey, &cached); err == nil && cached == StatusPaid {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/orders/"+orderRef, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway: provider returned %d", resp.StatusCode)
	}

	var parsed statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	if g.cache != nil && parsed.Status == StatusPaid {
		g.cache.SetKey(cacheKey, parsed.Status, 24*time.Hour)
	}

	return parsed.Status, nil
}
