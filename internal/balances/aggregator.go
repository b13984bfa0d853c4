// Package balances merges per-chain indexer results into one normalized
// balance list.
package balances

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"

	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/client"
	"kiwiwallet/internal/common"
	"kiwiwallet/internal/model"
	"kiwiwallet/internal/prices"
)

// Aggregator fans out balance queries across every registered chain.
type Aggregator struct {
	registry     *chains.Registry
	indexer      *client.IndexerClient
	prices       *prices.Converter
	fiatCurrency string
}

// New creates an aggregator.
func New(registry *chains.Registry, indexer *client.IndexerClient, converter *prices.Converter, fiatCurrency string) *Aggregator {
	return &Aggregator{
		registry:     registry,
		indexer:      indexer,
		prices:       converter,
		fiatCurrency: fiatCurrency,
	}
}

type chainResult struct {
	chainID int64
	items   []model.TokenBalance
	err     error
}

// FetchAll queries every configured chain concurrently and merges the
// results. A failing chain contributes nothing; the call fails wholly
// only when every chain fails. When some chains fail, the merged
// balances are returned together with a *model.PartialFailure error so
// the caller can show partial results with an indicator.
//
// No ordering is guaranteed beyond per-chain grouping; callers that
// need presentation order must sort explicitly.
func (a *Aggregator) FetchAll(ctx context.Context, address string) ([]model.TokenBalance, error) {
	cfgs := a.registry.All()
	results := make(chan chainResult, len(cfgs))

	for _, cfg := range cfgs {
		go func(cfg chains.ChainConfig) {
			items, err := a.fetchChain(ctx, cfg, address)
			results <- chainResult{chainID: cfg.ChainID, items: items, err: err}
		}(cfg)
	}

	var merged []model.TokenBalance
	var failed []int64
	for range cfgs {
		res := <-results
		if res.err != nil {
			log.Warn().Err(res.err).Int64("chain_id", res.chainID).Msg("balance fetch failed for chain")
			failed = append(failed, res.chainID)
			continue
		}
		merged = append(merged, res.items...)
	}

	if len(failed) == len(cfgs) {
		return nil, fmt.Errorf("all %d chains failed: %w", len(cfgs), model.ErrRPCUnavailable)
	}
	if len(failed) > 0 {
		return merged, &model.PartialFailure{FailedChains: failed}
	}
	return merged, nil
}

// fetchChain queries one chain's indexer and normalizes each item.
// Malformed items are rejected; zero amounts are dropped after
// normalization.
func (a *Aggregator) fetchChain(ctx context.Context, cfg chains.ChainConfig, address string) ([]model.TokenBalance, error) {
	raw, err := a.indexer.Balances(ctx, cfg.ChainID, address)
	if err != nil {
		return nil, err
	}

	out := make([]model.TokenBalance, 0, len(raw))
	for _, item := range raw {
		balance, err := a.normalize(ctx, cfg, item)
		if err != nil {
			return nil, err
		}
		if balance == nil {
			continue
		}
		out = append(out, *balance)
	}
	return out, nil
}

func (a *Aggregator) normalize(ctx context.Context, cfg chains.ChainConfig, item client.IndexedBalance) (*model.TokenBalance, error) {
	rawBal, ok := new(big.Int).SetString(item.Balance, 10)
	if !ok || rawBal.Sign() < 0 {
		return nil, fmt.Errorf("malformed balance %q for %s on chain %d", item.Balance, item.Symbol, cfg.ChainID)
	}
	if rawBal.Sign() == 0 {
		return nil, nil
	}

	decimals := item.Decimals
	symbol := item.Symbol
	contract := item.ContractAddress
	if item.Native() {
		decimals = cfg.NativeDecimals
		symbol = cfg.NativeSymbol
		contract = ""
	}

	amount := common.AmountToFloat(rawBal, decimals)
	unitPrice := item.QuoteRate
	fiat := item.Quote

	// Indexers frequently omit native quotes; fall back to the price
	// service rather than silently reporting zero fiat value.
	if item.Native() && fiat == 0 {
		rate, err := a.prices.Rate(ctx, symbol, a.fiatCurrency)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("native price fallback unavailable")
		} else {
			unitPrice = rate
			fiat = amount * rate
		}
	}
	if unitPrice == 0 && amount > 0 && fiat > 0 {
		unitPrice = fiat / amount
	}

	return &model.TokenBalance{
		ChainID:         cfg.ChainID,
		ContractAddress: contract,
		RawBalance:      rawBal.String(),
		Decimals:        decimals,
		Symbol:          symbol,
		Amount:          common.FormatUnits(rawBal, decimals),
		LogoURL:         item.LogoURL,
		FiatUnitPrice:   unitPrice,
		FiatValue:       fiat,
	}, nil
}
