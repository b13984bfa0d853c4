package model

// TokenBalance is one normalized balance line for one asset on one chain.
// Produced fresh on every aggregation cycle, never mutated in place.
type TokenBalance struct {
	ChainID int64 `json:"chainId"`
	// ContractAddress is empty for the chain's native asset.
	ContractAddress string `json:"contractAddress,omitempty"`
	// RawBalance is the on-chain integer balance in the asset's
	// smallest unit, as a decimal string (arbitrary precision).
	RawBalance string `json:"rawBalance"`
	Decimals   int    `json:"decimals"`
	Symbol     string `json:"symbol"`
	// Amount is RawBalance shifted by Decimals, as a decimal string.
	Amount  string `json:"amount"`
	LogoURL string `json:"logoUrl,omitempty"`
	// FiatUnitPrice is the price of one whole unit in the display currency.
	FiatUnitPrice float64 `json:"fiatUnitPrice"`
	// FiatValue = Amount * FiatUnitPrice.
	FiatValue float64 `json:"fiatValue"`
}

// Native reports whether this line is the chain's native asset.
func (b TokenBalance) Native() bool {
	return b.ContractAddress == ""
}

// BalancesResponse represents response for GET /wallet/balances
type BalancesResponse struct {
	Address      string         `json:"address"`
	FiatCurrency string         `json:"fiatCurrency"`
	TotalFiat    float64        `json:"totalFiat"`
	Balances     []TokenBalance `json:"balances"`
	// Partial is set when some chains could not be reached; the listed
	// balances are then the successful chains only.
	Partial      bool    `json:"partial,omitempty"`
	FailedChains []int64 `json:"failedChains,omitempty"`
}
