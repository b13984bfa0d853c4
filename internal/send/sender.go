// Package send drives a transfer through its full lifecycle: draft,
// estimate, funds check, sign, broadcast, confirmation. Sends for the
// same account and chain are serialized so nonces never collide.
package send

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"

	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/client"
	"kiwiwallet/internal/fees"
	"kiwiwallet/internal/keys"
	"kiwiwallet/internal/model"
)

// Request describes one transfer to submit.
type Request struct {
	ChainID   int64
	Recipient string
	// Amount is the display amount in whole asset units, e.g. "0.05".
	Amount    string
	AmountWei *big.Int
	// ContractAddress selects an ERC-20 transfer; empty means native.
	ContractAddress string
}

// Submitter signs and broadcasts transfers. One broadcast per request,
// never retried: a second submission of the same value is a double
// spend, not a retry.
type Submitter struct {
	nodes     *client.Nodes
	registry  *chains.Registry
	estimator *fees.Estimator

	confirmWait  time.Duration
	pollInterval time.Duration

	seq uint64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a submitter. confirmWait bounds how long Submit waits for
// a receipt before handing the transaction back still in-flight.
func New(nodes *client.Nodes, registry *chains.Registry, estimator *fees.Estimator, confirmWait time.Duration) *Submitter {
	return &Submitter{
		nodes:        nodes,
		registry:     registry,
		estimator:    estimator,
		confirmWait:  confirmWait,
		pollInterval: 2 * time.Second,
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing sends for one account on one
// chain. Different accounts and different chains proceed in parallel.
func (s *Submitter) lockFor(addr ethcommon.Address, chainID int64) *sync.Mutex {
	key := fmt.Sprintf("%s|%d", strings.ToLower(addr.Hex()), chainID)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Submitter) newPending(req Request) *model.PendingTransaction {
	return &model.PendingTransaction{
		ID:              fmt.Sprintf("tx-%d-%d", time.Now().UnixMilli(), atomic.AddUint64(&s.seq, 1)),
		ChainID:         req.ChainID,
		Status:          model.TxStatusDraft,
		Recipient:       req.Recipient,
		Amount:          req.Amount,
		ContractAddress: req.ContractAddress,
		CreatedAt:       time.Now().UTC(),
	}
}

func fail(tx *model.PendingTransaction, err error) (*model.PendingTransaction, error) {
	tx.Status = model.TxStatusFailed
	tx.Reason = err.Error()
	log.Warn().Str("tx_id", tx.ID).Int64("chain_id", tx.ChainID).Err(err).Msg("send failed")
	return tx, err
}

// Submit runs the whole lifecycle for one transfer and blocks until the
// transaction confirms or confirmWait elapses. The returned record is
// never nil: on failure it carries the FAILED status and reason, and on
// confirmation timeout it is handed back still in BROADCAST state with
// the hash set, since a timeout says nothing about the transaction's
// fate.
func (s *Submitter) Submit(ctx context.Context, acct *keys.Account, req Request) (*model.PendingTransaction, error) {
	lock := s.lockFor(acct.Address, req.ChainID)
	lock.Lock()
	defer lock.Unlock()

	tx := s.newPending(req)
	log.Info().Str("tx_id", tx.ID).Int64("chain_id", req.ChainID).Str("recipient", req.Recipient).Msg("send drafted")

	_, err := s.registry.ConfigFor(req.ChainID)
	if err != nil {
		return fail(tx, err)
	}
	node, err := s.nodes.ForChain(req.ChainID)
	if err != nil {
		return fail(tx, err)
	}

	est, err := s.estimator.Estimate(ctx, fees.Request{
		ChainID:         req.ChainID,
		From:            acct.Address,
		Recipient:       req.Recipient,
		AmountWei:       req.AmountWei,
		ContractAddress: req.ContractAddress,
	})
	if err != nil {
		return fail(tx, err)
	}
	tx.Status = model.TxStatusEstimated

	if err := s.checkFunds(ctx, node, acct.Address, req, est); err != nil {
		return fail(tx, err)
	}

	nonce, err := node.PendingNonce(ctx, acct.Address)
	if err != nil {
		return fail(tx, fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err))
	}
	tx.Nonce = nonce

	signed, err := acct.SignTx(buildTx(req, est, nonce), big.NewInt(req.ChainID))
	if err != nil {
		return fail(tx, fmt.Errorf("failed to sign transaction: %w", err))
	}
	tx.Status = model.TxStatusSigned

	if err := node.Broadcast(ctx, signed); err != nil {
		return fail(tx, fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err))
	}
	tx.Hash = signed.Hash().Hex()
	tx.ExplorerURL = s.registry.ExplorerTxURL(req.ChainID, tx.Hash)
	tx.Status = model.TxStatusBroadcast
	log.Info().Str("tx_id", tx.ID).Str("hash", tx.Hash).Uint64("nonce", nonce).Msg("transaction broadcast")

	s.awaitReceipt(ctx, node, tx, signed.Hash())
	return tx, nil
}

// checkFunds verifies the account can cover amount and fee before
// anything is signed. A native send needs amount plus fee in the native
// balance; a token send needs the token amount plus the fee in native.
func (s *Submitter) checkFunds(ctx context.Context, node *client.Node, from ethcommon.Address, req Request, est *model.FeeEstimate) error {
	native, err := node.NativeBalance(ctx, from)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err)
	}

	if req.ContractAddress == "" {
		need := new(big.Int).Add(req.AmountWei, est.FeeWei)
		if native.Cmp(need) < 0 {
			return fmt.Errorf("%w: need %s wei, have %s", model.ErrInsufficientFunds, need, native)
		}
		return nil
	}

	if native.Cmp(est.FeeWei) < 0 {
		return fmt.Errorf("%w: need %s wei for fees, have %s", model.ErrInsufficientFunds, est.FeeWei, native)
	}
	tokenBal, err := node.TokenBalance(ctx, ethcommon.HexToAddress(req.ContractAddress), from)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err)
	}
	if tokenBal.Cmp(req.AmountWei) < 0 {
		return fmt.Errorf("%w: need %s token units, have %s", model.ErrInsufficientFunds, req.AmountWei, tokenBal)
	}
	return nil
}

// buildTx assembles the unsigned transaction from the estimate. Chains
// with EIP-1559 fee data get a dynamic fee transaction, others a legacy
// one.
func buildTx(req Request, est *model.FeeEstimate, nonce uint64) *types.Transaction {
	to := ethcommon.HexToAddress(req.Recipient)
	value := req.AmountWei
	var data []byte
	if req.ContractAddress != "" {
		to = ethcommon.HexToAddress(req.ContractAddress)
		value = big.NewInt(0)
		data = client.ERC20TransferData(ethcommon.HexToAddress(req.Recipient), req.AmountWei)
	}

	if est.Dynamic() {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   big.NewInt(req.ChainID),
			Nonce:     nonce,
			GasTipCap: est.GasTipCap,
			GasFeeCap: est.GasFeeCap,
			Gas:       est.GasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: est.GasPrice,
		Gas:      est.GasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})
}

// awaitReceipt polls for the receipt until confirmWait elapses. On
// timeout the transaction stays in BROADCAST state; it may still mine
// later and the hash is already recorded.
func (s *Submitter) awaitReceipt(ctx context.Context, node *client.Node, tx *model.PendingTransaction, hash ethcommon.Hash) {
	deadline := time.Now().Add(s.confirmWait)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := node.Receipt(ctx, hash)
		if err == nil {
			tx.Status = model.TxStatusConfirmed
			tx.Reverted = receipt.Status != types.ReceiptStatusSuccessful
			log.Info().Str("tx_id", tx.ID).Str("hash", tx.Hash).Bool("reverted", tx.Reverted).Msg("transaction confirmed")
			return
		}
		if !errors.Is(err, ethereum.NotFound) {
			log.Warn().Str("tx_id", tx.ID).Err(err).Msg("receipt poll failed")
		}
		if time.Now().After(deadline) {
			log.Info().Str("tx_id", tx.ID).Str("hash", tx.Hash).Msg("confirmation wait elapsed, transaction still in flight")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
