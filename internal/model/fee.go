package model

import "math/big"

// FeeEstimate is the projected cost of one prospective transfer. It is
// valid only for the exact (from, chain, recipient, amount, asset) tuple
// it was computed for; the send flow re-estimates instead of reusing one
// once any of those inputs change.
type FeeEstimate struct {
	ChainID  int64
	GasLimit uint64

	// EIP-1559 parameters; nil on chains without a base fee, in which
	// case GasPrice is set instead.
	GasTipCap *big.Int
	GasFeeCap *big.Int
	GasPrice  *big.Int

	// FeeWei = GasLimit * (GasFeeCap or GasPrice).
	FeeWei *big.Int
	// FeeNative is FeeWei in whole native units as a decimal string.
	FeeNative string

	// Inputs the estimate was computed for.
	From            string
	Recipient       string
	AmountWei       *big.Int
	ContractAddress string
}

// Dynamic reports whether the estimate carries EIP-1559 fee parameters.
func (f *FeeEstimate) Dynamic() bool {
	return f.GasFeeCap != nil
}

// FeeRequest represents request for POST /wallet/fee
type FeeRequest struct {
	ChainID int64  `json:"chainId" binding:"required"`
	To      string `json:"to" binding:"required"`
	// Amount is in whole asset units, e.g. "0.05".
	Amount string `json:"amount" binding:"required"`
	// ContractAddress selects an ERC-20 transfer; empty means native.
	ContractAddress string `json:"contractAddress,omitempty"`
	// Decimals of the token; ignored for native transfers.
	Decimals int `json:"decimals,omitempty"`
}

// FeeResponse represents response for POST /wallet/fee
type FeeResponse struct {
	ChainID      int64  `json:"chainId"`
	GasLimit     uint64 `json:"gasLimit"`
	GasPriceWei  string `json:"gasPriceWei,omitempty"`
	GasFeeCapWei string `json:"gasFeeCapWei,omitempty"`
	GasTipCapWei string `json:"gasTipCapWei,omitempty"`
	FeeWei       string `json:"feeWei"`
	FeeNative    string `json:"feeNative"`
	NativeSymbol string `json:"nativeSymbol"`
}
