package balances

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/client"
	"kiwiwallet/internal/model"
	"kiwiwallet/internal/prices"
)

const testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func newAggregator(t *testing.T, indexerHandler http.HandlerFunc, priceHandler http.HandlerFunc) *Aggregator {
	t.Helper()
	indexer := httptest.NewServer(indexerHandler)
	t.Cleanup(indexer.Close)

	if priceHandler == nil {
		priceHandler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}
	priceSrv := httptest.NewServer(priceHandler)
	t.Cleanup(priceSrv.Close)

	registry := chains.New("http://unused-eth", "http://unused-bsc")
	converter := prices.NewConverter(client.NewCoinGeckoClient(priceSrv.URL), time.Minute)
	return New(registry, client.NewIndexerClient(indexer.URL, "k", "nzd"), converter, "nzd")
}

func TestFetchAllMergesChains(t *testing.T) {
	agg := newAggregator(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1/address/" + testAddr + "/balances_v2/":
			fmt.Fprint(w, `{"data":{"items":[
				{"contract_address":"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee","balance":"2000000000000000000","contract_decimals":18,"contract_ticker_symbol":"ETH","quote":10000,"quote_rate":5000,"native_token":true},
				{"contract_address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","balance":"3000000","contract_decimals":6,"contract_ticker_symbol":"USDC","quote":4.8,"quote_rate":1.6},
				{"contract_address":"0x6B175474E89094C44Da98b954EedeAC495271d0F","balance":"0","contract_decimals":18,"contract_ticker_symbol":"DAI","quote":0}
			]}}`)
		default:
			fmt.Fprint(w, `{"data":{"items":[
				{"contract_address":"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee","balance":"5000000000000000000","contract_decimals":18,"contract_ticker_symbol":"BNB","quote":800,"quote_rate":160,"native_token":true}
			]}}`)
		}
	}, nil)

	got, err := agg.FetchAll(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, got, 3, "zero DAI balance must be dropped")

	bySymbol := map[string]model.TokenBalance{}
	for _, b := range got {
		bySymbol[b.Symbol] = b
	}

	eth := bySymbol["ETH"]
	assert.Equal(t, int64(1), eth.ChainID)
	assert.True(t, eth.Native())
	assert.Equal(t, "2", eth.Amount)
	assert.InDelta(t, 10000, eth.FiatValue, 1e-9)

	usdc := bySymbol["USDC"]
	assert.Equal(t, "3000000", usdc.RawBalance)
	assert.Equal(t, "3", usdc.Amount)
	assert.InDelta(t, 1.6, usdc.FiatUnitPrice, 1e-9)

	bnb := bySymbol["BNB"]
	assert.Equal(t, int64(56), bnb.ChainID)
}

func TestFetchAllPartialFailure(t *testing.T) {
	agg := newAggregator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/56/address/"+testAddr+"/balances_v2/" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"data":{"items":[
			{"contract_address":"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee","balance":"1000000000000000000","contract_decimals":18,"contract_ticker_symbol":"ETH","quote":5000,"quote_rate":5000,"native_token":true}
		]}}`)
	}, nil)

	got, err := agg.FetchAll(context.Background(), testAddr)

	var partial *model.PartialFailure
	require.True(t, errors.As(err, &partial), "expected PartialFailure, got %v", err)
	assert.Equal(t, []int64{56}, partial.FailedChains)
	require.Len(t, got, 1, "successful chain results are still returned")
	assert.Equal(t, "ETH", got[0].Symbol)
}

func TestFetchAllAllChainsFail(t *testing.T) {
	agg := newAggregator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}, nil)

	got, err := agg.FetchAll(context.Background(), testAddr)
	assert.ErrorIs(t, err, model.ErrRPCUnavailable)
	assert.Nil(t, got)
}

func TestFetchAllNativePriceFallback(t *testing.T) {
	agg := newAggregator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/56/address/"+testAddr+"/balances_v2/" {
			fmt.Fprint(w, `{"data":{"items":[]}}`)
			return
		}
		// Indexer omits the native quote entirely.
		fmt.Fprint(w, `{"data":{"items":[
			{"contract_address":"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee","balance":"2000000000000000000","contract_decimals":18,"contract_ticker_symbol":"ETH","quote":0,"quote_rate":0,"native_token":true}
		]}}`)
	}, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ethereum":{"nzd":5000}}`)
	})

	got, err := agg.FetchAll(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 5000, got[0].FiatUnitPrice, 1e-9)
	assert.InDelta(t, 10000, got[0].FiatValue, 1e-9)
}

func TestFetchAllMalformedBalanceIsChainFailure(t *testing.T) {
	agg := newAggregator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/1/address/"+testAddr+"/balances_v2/" {
			fmt.Fprint(w, `{"data":{"items":[
				{"contract_address":"0xabc","balance":"not-a-number","contract_decimals":18,"contract_ticker_symbol":"WTF"}
			]}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"items":[]}}`)
	}, nil)

	got, err := agg.FetchAll(context.Background(), testAddr)
	var partial *model.PartialFailure
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []int64{1}, partial.FailedChains)
	assert.Empty(t, got)
}
