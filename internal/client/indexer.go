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

// nativeSentinel is the pseudo contract address some indexers use for
// the chain's native asset.
const nativeSentinel = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// IndexedBalance is one raw balance item from the indexing service.
type IndexedBalance struct {
	ContractAddress string  `json:"contract_address"`
	Balance         string  `json:"balance"`
	Decimals        int     `json:"contract_decimals"`
	Symbol          string  `json:"contract_ticker_symbol"`
	Quote           float64 `json:"quote"`
	QuoteRate       float64 `json:"quote_rate"`
	LogoURL         string  `json:"logo_url"`
	NativeToken     bool    `json:"native_token"`
}

// Native reports whether the item is the chain's native asset.
func (b IndexedBalance) Native() bool {
	return b.NativeToken || b.ContractAddress == "" ||
		strings.EqualFold(b.ContractAddress, nativeSentinel)
}

// IndexedTransaction is one raw history item from the indexing service.
type IndexedTransaction struct {
	TxHash       string    `json:"tx_hash"`
	FromAddress  string    `json:"from_address"`
	ToAddress    string    `json:"to_address"`
	Value        string    `json:"value"`
	Successful   bool      `json:"successful"`
	BlockSignedAt time.Time `json:"block_signed_at"`
}

type indexerEnvelope struct {
	Data struct {
		Items json.RawMessage `json:"items"`
	} `json:"data"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// IndexerClient queries the balance/history indexing service, keyed by
// chain id and address.
type IndexerClient struct {
	baseURL       string
	apiKey        string
	quoteCurrency string
	client        *http.Client
}

// NewIndexerClient creates a new indexer client.
func NewIndexerClient(baseURL, apiKey, quoteCurrency string) *IndexerClient {
	return &IndexerClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		quoteCurrency: quoteCurrency,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Balances fetches all balances for an address on one chain, with fiat
// quotes in the client's quote currency. Non-2xx responses are errors;
// the aggregator decides whether a failure is soft.
func (c *IndexerClient) Balances(ctx context.Context, chainID int64, address string) ([]IndexedBalance, error) {
	u := fmt.Sprintf("%s/%d/address/%s/balances_v2/?quote-currency=%s&no-nft=true&key=%s",
		c.baseURL, chainID, url.PathEscape(address), url.QueryEscape(c.quoteCurrency), url.QueryEscape(c.apiKey))

	var items []IndexedBalance
	if err := c.get(ctx, u, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Transactions fetches recent transactions for an address on one chain,
// newest first, capped at limit.
func (c *IndexerClient) Transactions(ctx context.Context, chainID int64, address string, limit int) ([]IndexedTransaction, error) {
	u := fmt.Sprintf("%s/%d/address/%s/transactions_v2/?page-size=%d&key=%s",
		c.baseURL, chainID, url.PathEscape(address), limit, url.QueryEscape(c.apiKey))

	var items []IndexedTransaction
	if err := c.get(ctx, u, &items); err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *IndexerClient) get(ctx context.Context, u string, items interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create indexer request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "indexer request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("indexer returned status %d", resp.StatusCode)
	}

	var env indexerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrap(err, "failed to decode indexer response")
	}
	if env.Error {
		return errors.Errorf("indexer error: %s", env.ErrorMessage)
	}
	if len(env.Data.Items) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data.Items, items); err != nil {
		return errors.Wrap(err, "malformed indexer items")
	}
	return nil
}
