// Package address fetches random postal addresses used to decorate forecasts.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var _ port.AddressProvider = (*Client)(nil)

const (
	DefaultBaseURL = "https://random-data-api.com"
	DefaultTimeout = 10 * time.Second

	addressesPath = "/api/v2/addresses"
)

// Client calls the random address API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. Outbound requests are traced and
// bounded by timeout (DefaultTimeout when zero).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) RandomAddress(ctx context.Context) (domain.Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+addressesPath, nil)
	if err != nil {
		return domain.Address{}, fmt.Errorf("building address request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Address{}, fmt.Errorf("calling address API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Address{}, fmt.Errorf("address API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var addr domain.Address
	if err := json.NewDecoder(resp.Body).Decode(&addr); err != nil {
		return domain.Address{}, fmt.Errorf("decoding address response: %w", err)
	}
	return addr, nil
}
