// Package chains holds the closed table of supported chains. It is the
// single authority for RPC endpoint selection; nothing else decides
// which node a chain-aware component talks to.
package chains

import (
	"fmt"

	"kiwiwallet/internal/model"
)

// ChainConfig describes one supported chain. Immutable after load.
type ChainConfig struct {
	ChainID        int64
	Name           string
	RPCURL         string
	NativeSymbol   string
	NativeDecimals int
	// CoinGeckoID is the price service id for the native asset.
	CoinGeckoID string
	// ExplorerTxURL is a format string taking the transaction hash.
	ExplorerTxURL string
}

// Registry is a pure lookup over the supported chain set. The set is
// closed and known in advance; there is no way to add chains at runtime.
type Registry struct {
	byID  map[int64]ChainConfig
	order []int64
}

// New builds the registry. RPC URLs are the only configurable part; the
// chain set itself is static.
func New(ethRPCURL, bscRPCURL string) *Registry {
	configs := []ChainConfig{
		{
			ChainID:        1,
			Name:           "Ethereum",
			RPCURL:         ethRPCURL,
			NativeSymbol:   "ETH",
			NativeDecimals: 18,
			CoinGeckoID:    "ethereum",
			ExplorerTxURL:  "https://etherscan.io/tx/%s",
		},
		{
			ChainID:        56,
			Name:           "BNB Smart Chain",
			RPCURL:         bscRPCURL,
			NativeSymbol:   "BNB",
			NativeDecimals: 18,
			CoinGeckoID:    "binancecoin",
			ExplorerTxURL:  "https://bscscan.com/tx/%s",
		},
	}

	r := &Registry{byID: make(map[int64]ChainConfig, len(configs))}
	for _, c := range configs {
		r.byID[c.ChainID] = c
		r.order = append(r.order, c.ChainID)
	}
	return r
}

// ConfigFor returns the config for a chain id, or model.ErrUnsupportedChain.
func (r *Registry) ConfigFor(chainID int64) (ChainConfig, error) {
	c, ok := r.byID[chainID]
	if !ok {
		return ChainConfig{}, fmt.Errorf("%w: chain id %d", model.ErrUnsupportedChain, chainID)
	}
	return c, nil
}

// All returns every supported chain in declaration order.
func (r *Registry) All() []ChainConfig {
	out := make([]ChainConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ExplorerTxURL builds the explorer link for a transaction hash.
func (r *Registry) ExplorerTxURL(chainID int64, hash string) string {
	c, ok := r.byID[chainID]
	if !ok || hash == "" {
		return ""
	}
	return fmt.Sprintf(c.ExplorerTxURL, hash)
}
