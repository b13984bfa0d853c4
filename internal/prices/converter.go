// Package prices attaches fiat values to asset symbols. The converter
// degrades gracefully: a stale cached rate is always preferred over no
// rate, so balance display never goes blank because a price feed
// hiccuped.
package prices

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"kiwiwallet/internal/client"
	"kiwiwallet/internal/model"
)

// coinGeckoIDs maps asset symbols to price service ids.
var coinGeckoIDs = map[string]string{
	"ETH":  "ethereum",
	"BNB":  "binancecoin",
	"USDC": "usd-coin",
	"USDT": "tether",
	"DAI":  "dai",
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// Converter caches exchange rates with a freshness window and refreshes
// them in the background.
type Converter struct {
	client  *client.CoinGeckoClient
	refresh time.Duration

	mu    sync.Mutex
	cache map[string]cachedRate // key: symbol|fiat
}

// NewConverter creates a converter. refresh is both the cache freshness
// window and the background refresh interval.
func NewConverter(cg *client.CoinGeckoClient, refresh time.Duration) *Converter {
	return &Converter{
		client:  cg,
		refresh: refresh,
		cache:   make(map[string]cachedRate),
	}
}

// Rate returns the fiat rate for one whole unit of the asset. A fresh
// cached value is returned without network I/O. On fetch failure the
// last good value is returned; model.ErrPriceUnavailable only when no
// value has ever been fetched.
func (c *Converter) Rate(ctx context.Context, symbol, fiatCurrency string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	id, ok := coinGeckoIDs[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: unknown symbol %s", model.ErrPriceUnavailable, symbol)
	}
	key := symbol + "|" + strings.ToLower(fiatCurrency)

	c.mu.Lock()
	cached, have := c.cache[key]
	c.mu.Unlock()

	if have && time.Since(cached.fetchedAt) < c.refresh {
		return cached.rate, nil
	}

	rate, err := c.client.SimplePrice(ctx, id, fiatCurrency)
	if err != nil {
		if have {
			log.Warn().Err(err).Str("symbol", symbol).Msg("price refresh failed, serving cached rate")
			return cached.rate, nil
		}
		return 0, fmt.Errorf("%w: %s", model.ErrPriceUnavailable, symbol)
	}

	c.mu.Lock()
	c.cache[key] = cachedRate{rate: rate, fetchedAt: time.Now()}
	c.mu.Unlock()
	return rate, nil
}

// Start runs the background refresh loop until ctx is cancelled. Every
// interval it re-fetches each cached (symbol, fiat) pair; failures keep
// the previous value.
func (c *Converter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshAll(ctx)
			}
		}
	}()
}

func (c *Converter) refreshAll(ctx context.Context) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.cache))
	for k := range c.cache {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	for _, key := range keys {
		parts := strings.SplitN(key, "|", 2)
		id := coinGeckoIDs[parts[0]]
		rate, err := c.client.SimplePrice(ctx, id, parts[1])
		if err != nil {
			log.Warn().Err(err).Str("symbol", parts[0]).Msg("background price refresh failed")
			continue
		}
		c.mu.Lock()
		c.cache[key] = cachedRate{rate: rate, fetchedAt: time.Now()}
		c.mu.Unlock()
	}
}
