// Package fees computes the cost of a prospective transfer before
// submission. Token transfers are simulated against the contract to get
// an accurate gas limit; a fixed guess is never used.
package fees

import (
	"context"
	"fmt"
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/client"
	"kiwiwallet/internal/common"
	"kiwiwallet/internal/model"
)

// addressRe matches a 20-byte 0x-prefixed hex address.
var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s is a well-formed chain address.
func ValidAddress(s string) bool {
	return addressRe.MatchString(s)
}

// Request is the tuple an estimate is computed for. The resulting
// estimate is stale as soon as any field changes.
type Request struct {
	ChainID   int64
	From      ethcommon.Address
	Recipient string
	AmountWei *big.Int
	// ContractAddress selects an ERC-20 transfer; empty means native.
	ContractAddress string
}

// Estimator queries chain nodes for gas cost and fee data.
type Estimator struct {
	nodes    *client.Nodes
	registry *chains.Registry
}

// New creates an estimator.
func New(nodes *client.Nodes, registry *chains.Registry) *Estimator {
	return &Estimator{nodes: nodes, registry: registry}
}

// Estimate computes the fee for one prospective transfer. Fails with
// model.ErrInvalidAddress on a malformed recipient or token contract,
// model.ErrUnsupportedChain for unknown chains, and
// model.ErrRPCUnavailable on node failure. Estimates are advisory; the
// actual fee at broadcast time may differ.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*model.FeeEstimate, error) {
	if !ValidAddress(req.Recipient) {
		return nil, fmt.Errorf("%w: recipient %q", model.ErrInvalidAddress, req.Recipient)
	}
	if req.ContractAddress != "" && !ValidAddress(req.ContractAddress) {
		return nil, fmt.Errorf("%w: token contract %q", model.ErrInvalidAddress, req.ContractAddress)
	}
	if req.AmountWei == nil || req.AmountWei.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount")
	}

	cfg, err := e.registry.ConfigFor(req.ChainID)
	if err != nil {
		return nil, err
	}
	node, err := e.nodes.ForChain(req.ChainID)
	if err != nil {
		return nil, err
	}

	msg := e.callMsg(req)
	gasLimit, err := node.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err)
	}

	feeData, err := node.FeeData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err)
	}

	feeWei := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), feeData.PerGas())

	return &model.FeeEstimate{
		ChainID:         req.ChainID,
		GasLimit:        gasLimit,
		GasTipCap:       feeData.GasTipCap,
		GasFeeCap:       feeData.GasFeeCap,
		GasPrice:        feeData.GasPrice,
		FeeWei:          feeWei,
		FeeNative:       common.FormatUnits(feeWei, cfg.NativeDecimals),
		From:            req.From.Hex(),
		Recipient:       req.Recipient,
		AmountWei:       new(big.Int).Set(req.AmountWei),
		ContractAddress: req.ContractAddress,
	}, nil
}

// callMsg builds the simulation message. A native transfer carries the
// value directly; a token transfer simulates the contract call so the
// gas limit reflects the contract's actual execution cost.
func (e *Estimator) callMsg(req Request) ethereum.CallMsg {
	if req.ContractAddress == "" {
		to := ethcommon.HexToAddress(req.Recipient)
		return ethereum.CallMsg{From: req.From, To: &to, Value: req.AmountWei}
	}
	contract := ethcommon.HexToAddress(req.ContractAddress)
	data := client.ERC20TransferData(ethcommon.HexToAddress(req.Recipient), req.AmountWei)
	return ethereum.CallMsg{From: req.From, To: &contract, Data: data}
}
