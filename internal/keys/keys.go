// Package keys turns a BIP-39 recovery phrase into a deterministic
// signing account. The derivation path is a single constant for the
// whole system: wallet creation, restore, and signing all derive the
// same key, so mixing path conventions is impossible by construction.
package keys

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"kiwiwallet/internal/model"
)

// DerivationPath is the fixed BIP-44 path for the wallet's first
// account. The same secp256k1 key serves every EVM chain; the chain id
// only selects signer parameters at signing time.
const DerivationPath = "m/44'/60'/0'/0/0"

// derivationSteps is DerivationPath as child indices.
var derivationSteps = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

// Account is a derived signing identity. It is a cache, not a source of
// truth: it is re-derivable at any time from the recovery phrase and is
// never persisted. Call Zero once signing is done.
type Account struct {
	Address common.Address

	key *ecdsa.PrivateKey
}

// NewPhrase generates a new recovery phrase of 12 or 24 words from a
// cryptographically secure random source.
func NewPhrase(wordCount int) (string, error) {
	var bits int
	switch wordCount {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", fmt.Errorf("word count must be 12 or 24, got %d", wordCount)
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// NormalizePhrase trims and collapses whitespace so user input with
// stray spacing still validates.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// ValidatePhrase checks word count and BIP-39 checksum.
func ValidatePhrase(phrase string) error {
	phrase = NormalizePhrase(phrase)
	words := len(strings.Fields(phrase))
	if words != 12 && words != 24 {
		return fmt.Errorf("%w: expected 12 or 24 words, got %d", model.ErrInvalidPhrase, words)
	}
	if !bip39.IsMnemonicValid(phrase) {
		return fmt.Errorf("%w: checksum mismatch", model.ErrInvalidPhrase)
	}
	return nil
}

// DeriveAccount derives the wallet's account from the phrase. It is a
// pure function: the same valid phrase always yields the same address
// and signing key. Fails with model.ErrInvalidPhrase on bad input and
// never returns a partial account.
func DeriveAccount(phrase string) (*Account, error) {
	phrase = NormalizePhrase(phrase)
	if err := ValidatePhrase(phrase); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(phrase, "")
	defer clear(seed)

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPhrase, err)
	}
	for _, step := range derivationSteps {
		key, err = key.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key: %w", err)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}
	// Rebuild the key through go-ethereum's constructor: its signer
	// rejects keys whose Curve is not its own S256() instance.
	ecdsaKey, err := crypto.ToECDSA(privKey.Serialize())
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}

	return &Account{
		Address: crypto.PubkeyToAddress(ecdsaKey.PublicKey),
		key:     ecdsaKey,
	}, nil
}

// DeriveAddress derives only the address, zeroing the key before
// returning. For flows that never sign.
func DeriveAddress(phrase string) (common.Address, error) {
	acct, err := DeriveAccount(phrase)
	if err != nil {
		return common.Address{}, err
	}
	defer acct.Zero()
	return acct.Address, nil
}

// SignTx signs a transaction for the given chain. The key never leaves
// this package.
func (a *Account) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if a.key == nil {
		return nil, fmt.Errorf("account key already zeroed")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), a.key)
}

// KeyBytes returns the raw private key. Tests only verify determinism
// with it; production code must not serialize or log it.
func (a *Account) KeyBytes() []byte {
	if a.key == nil {
		return nil
	}
	return crypto.FromECDSA(a.key)
}

// Zero wipes the private key material from memory.
func (a *Account) Zero() {
	if a.key == nil {
		return
	}
	b := a.key.D.Bits()
	for i := range b {
		b[i] = 0
	}
	a.key = nil
}
