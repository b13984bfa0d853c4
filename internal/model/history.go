package model

import "time"

// TxDirection classifies a historical transaction relative to the
// wallet's own address.
type TxDirection string

const (
	TxDirectionIncoming TxDirection = "INCOMING"
	TxDirectionOutgoing TxDirection = "OUTGOING"
	TxDirectionSelf     TxDirection = "SELF"
)

// TransactionRecord is one past transaction from the indexing service.
type TransactionRecord struct {
	Hash      string      `json:"hash"`
	ChainID   int64       `json:"chainId"`
	Direction TxDirection `json:"direction"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	// ValueWei is the transferred native value in wei, decimal string.
	ValueWei string `json:"valueWei"`
	// Value is ValueWei in whole native units.
	Value      string    `json:"value"`
	Successful bool      `json:"successful"`
	Timestamp  time.Time `json:"timestamp"`
}

// HistoryResponse represents response for GET /wallet/transactions
type HistoryResponse struct {
	Address      string              `json:"address"`
	ChainID      int64               `json:"chainId"`
	Transactions []TransactionRecord `json:"transactions"`
}
