package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CoinGeckoClient client for the CoinGecko price API
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoClient creates a new CoinGecko client
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SimplePrice gets the price of one asset id in one fiat currency.
// Response shape: {"<id>": {"<fiat>": <rate>}}
func (c *CoinGeckoClient) SimplePrice(ctx context.Context, id, fiatCurrency string) (float64, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, url.QueryEscape(id), url.QueryEscape(fiatCurrency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create price request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rate")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("failed to get rate: status %d", resp.StatusCode)
	}

	var priceResp map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return 0, errors.Wrap(err, "failed to decode rate")
	}

	rate, ok := priceResp[id][strings.ToLower(fiatCurrency)]
	if !ok {
		return 0, errors.Errorf("no %s rate for %s in response", fiatCurrency, id)
	}
	return rate, nil
}
