// Package history fetches past transactions for an address and
// classifies each relative to the wallet.
package history

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/client"
	"kiwiwallet/internal/common"
	"kiwiwallet/internal/model"
)

// DefaultLimit caps a history page when the caller does not ask for a
// specific size.
const DefaultLimit = 25

// Service reads transaction history from the indexing service.
type Service struct {
	registry *chains.Registry
	indexer  *client.IndexerClient
}

// New creates a history service.
func New(registry *chains.Registry, indexer *client.IndexerClient) *Service {
	return &Service{registry: registry, indexer: indexer}
}

// Direction classifies a transaction relative to addr. A transfer to
// oneself is SELF, not both directions at once.
func Direction(addr, from, to string) model.TxDirection {
	fromSelf := strings.EqualFold(from, addr)
	toSelf := strings.EqualFold(to, addr)
	switch {
	case fromSelf && toSelf:
		return model.TxDirectionSelf
	case fromSelf:
		return model.TxDirectionOutgoing
	default:
		return model.TxDirectionIncoming
	}
}

// Fetch returns the address's recent transactions on one chain, newest
// first. Fails with model.ErrUnsupportedChain for unknown chains and
// model.ErrRPCUnavailable when the indexer cannot be reached.
func (s *Service) Fetch(ctx context.Context, chainID int64, address string, limit int) ([]model.TransactionRecord, error) {
	cfg, err := s.registry.ConfigFor(chainID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	items, err := s.indexer.Transactions(ctx, chainID, address, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err)
	}

	records := make([]model.TransactionRecord, 0, len(items))
	for _, item := range items {
		wei, ok := new(big.Int).SetString(item.Value, 10)
		if !ok {
			wei = big.NewInt(0)
		}
		records = append(records, model.TransactionRecord{
			Hash:       item.TxHash,
			ChainID:    chainID,
			Direction:  Direction(address, item.FromAddress, item.ToAddress),
			From:       item.FromAddress,
			To:         item.ToAddress,
			ValueWei:   wei.String(),
			Value:      common.FormatUnits(wei, cfg.NativeDecimals),
			Successful: item.Successful,
			Timestamp:  item.BlockSignedAt,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}
