package model

// CreateRequest represents request for POST /wallet/create
type CreateRequest struct {
	// WordCount is the recovery phrase length, 12 or 24. Defaults to 12.
	WordCount int `json:"wordCount,omitempty"`
}

// CreateResponse represents response for POST /wallet/create.
// The mnemonic is returned exactly once so the user can back it up;
// it is never returned by any other endpoint except GET /wallet/phrase.
type CreateResponse struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic"`
}

// RestoreRequest represents request for POST /wallet/restore
type RestoreRequest struct {
	Mnemonic string `json:"mnemonic" binding:"required"`
}

// RestoreResponse represents response for POST /wallet/restore
type RestoreResponse struct {
	Address string `json:"address"`
}

// PhraseResponse represents response for GET /wallet/phrase
type PhraseResponse struct {
	Mnemonic string `json:"mnemonic"`
}

// ReceiveResponse represents response for GET /wallet/receive
type ReceiveResponse struct {
	Address string `json:"address"`
	// QR is a base64-encoded PNG of the address.
	QR string `json:"qr"`
}
