package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: the vault password is prompted at runtime and stored in memory -
// use GetPasswordBytes()
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	VaultPath string `envconfig:"VAULT_PATH" default:"wallet.vault"`

	// Fiat display currency for balances (CoinGecko vs_currency code).
	FiatCurrency string `envconfig:"FIAT_CURRENCY" default:"nzd"`

	EthRPCURL string `envconfig:"ETH_RPC_URL" default:"https://ethereum.publicnode.com"`
	BscRPCURL string `envconfig:"BSC_RPC_URL" default:"https://bsc.publicnode.com"`

	CovalentBaseURL string `envconfig:"COVALENT_BASE_URL" default:"https://api.covalenthq.com/v1"`
	CovalentAPIKey  string `envconfig:"COVALENT_API_KEY" required:"true"`

	CoinGeckoBaseURL string `envconfig:"COINGECKO_BASE_URL" default:"https://api.coingecko.com/api/v3"`

	PriceRefreshSeconds int `envconfig:"PRICE_REFRESH_SECONDS" default:"60"`
	ConfirmWaitSeconds  int `envconfig:"CONFIRM_WAIT_SECONDS" default:"90"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	cfg = &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

var passwordBytes []byte

// PromptForPassword prompts the user for the vault password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter vault password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("password cannot be empty")
	}

	SetPassword(raw)
	clear(raw)
	return nil
}

// SetPassword stores a copy of the vault password in memory. Normally
// called via PromptForPassword.
func SetPassword(raw []byte) {
	passwordBytes = make([]byte, len(raw))
	copy(passwordBytes, raw)
}

// GetPasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
