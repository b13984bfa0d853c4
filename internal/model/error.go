package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the wallet core taxonomy. Components translate
// low-level failures into these at their public boundary; nothing
// escapes a component as an opaque error.
var (
	// ErrInvalidPhrase means the recovery phrase failed word-count or
	// checksum validation. The user must re-enter it.
	ErrInvalidPhrase = errors.New("invalid recovery phrase")

	// ErrUnsupportedChain means the chain id is not in the registry.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrInvalidAddress means a recipient or contract address is malformed.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInsufficientFunds means the amount (plus fee, for native sends)
	// exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRPCUnavailable means the chain node could not be reached or
	// rejected the call. Broadcasts are never retried automatically.
	ErrRPCUnavailable = errors.New("rpc unavailable")

	// ErrPriceUnavailable means no exchange rate has ever been fetched
	// for the requested symbol.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrNoWallet means no recovery phrase is stored in the vault.
	ErrNoWallet = errors.New("no wallet found")

	// ErrWalletExists means the vault already holds a recovery phrase.
	ErrWalletExists = errors.New("wallet already exists")
)

// StorageError is a vault read/write failure, surfaced to the user as
// "cannot access wallet".
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("vault %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PartialFailure marks a balance aggregation where some, but not all,
// chains failed. The merged results of the successful chains are still
// valid and should be shown with an indicator.
type PartialFailure struct {
	FailedChains []int64
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("partial failure: %d chain(s) unavailable %v", len(e.FailedChains), e.FailedChains)
}

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
