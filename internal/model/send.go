package model

import "time"

// TxStatus is the lifecycle state of a prospective transfer.
type TxStatus string

const (
	TxStatusDraft     TxStatus = "DRAFT"
	TxStatusEstimated TxStatus = "ESTIMATED"
	TxStatusSigned    TxStatus = "SIGNED"
	TxStatusBroadcast TxStatus = "BROADCAST"
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
)

// PendingTransaction tracks one transfer from draft to its terminal
// state. The hash is recorded the moment the broadcast is accepted, so
// the user always has a reference even before confirmation.
type PendingTransaction struct {
	ID      string   `json:"id"`
	ChainID int64    `json:"chainId"`
	Status  TxStatus `json:"status"`

	Recipient       string `json:"recipient"`
	Amount          string `json:"amount"`
	ContractAddress string `json:"contractAddress,omitempty"`

	Hash        string    `json:"hash,omitempty"`
	ExplorerURL string    `json:"explorerUrl,omitempty"`
	Nonce       uint64    `json:"nonce"`
	CreatedAt   time.Time `json:"createdAt"`

	// Reverted is meaningful only in CONFIRMED state: the transaction
	// was mined but its execution failed.
	Reverted bool `json:"reverted,omitempty"`
	// Reason is set in FAILED state.
	Reason string `json:"reason,omitempty"`
}

// Terminal reports whether the transaction reached a final state.
func (p *PendingTransaction) Terminal() bool {
	return p.Status == TxStatusConfirmed || p.Status == TxStatusFailed
}

// SendRequest represents request for POST /wallet/send
type SendRequest struct {
	ChainID int64  `json:"chainId" binding:"required"`
	To      string `json:"to" binding:"required"`
	// Amount is in whole asset units, e.g. "0.05".
	Amount string `json:"amount" binding:"required"`
	// ContractAddress selects an ERC-20 transfer; empty means native.
	ContractAddress string `json:"contractAddress,omitempty"`
	// Decimals of the token; ignored for native transfers.
	Decimals int `json:"decimals,omitempty"`
}

// SendResponse represents response for POST /wallet/send
type SendResponse struct {
	ID          string   `json:"id"`
	TxHash      string   `json:"txHash"`
	Status      TxStatus `json:"status"`
	ExplorerURL string   `json:"explorerUrl,omitempty"`
	Reverted    bool     `json:"reverted,omitempty"`
}
