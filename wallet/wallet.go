// Package wallet is the application core: one locally stored account
// used across every registered chain. It owns the lifecycle (create,
// restore, reveal, reset) and fronts balances, fees, sends and history.
package wallet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"sort"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"kiwiwallet/internal/balances"
	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/common"
	"kiwiwallet/internal/fees"
	"kiwiwallet/internal/history"
	"kiwiwallet/internal/keys"
	"kiwiwallet/internal/model"
	"kiwiwallet/internal/send"
)

// Store is the encrypted phrase storage the service runs on.
// *vault.Vault is the production implementation.
type Store interface {
	Exists() bool
	Address() (string, error)
	Save(phrase, address string, password []byte) error
	Load(password []byte) (string, bool, error)
	Clear() error
}

// Deps are the collaborators a Service is assembled from.
type Deps struct {
	Store        Store
	Registry     *chains.Registry
	Balances     *balances.Aggregator
	Fees         *fees.Estimator
	Sender       *send.Submitter
	History      *history.Service
	FiatCurrency string
}

// Service exposes the wallet's operations. All methods are safe for
// concurrent use.
type Service struct {
	store        Store
	registry     *chains.Registry
	balances     *balances.Aggregator
	fees         *fees.Estimator
	sender       *send.Submitter
	history      *history.Service
	fiatCurrency string
}

// New assembles the wallet service.
func New(deps Deps) *Service {
	return &Service{
		store:        deps.Store,
		registry:     deps.Registry,
		balances:     deps.Balances,
		fees:         deps.Fees,
		sender:       deps.Sender,
		history:      deps.History,
		fiatCurrency: deps.FiatCurrency,
	}
}

// Create generates a fresh recovery phrase, derives the account and
// stores the phrase encrypted. Refuses to overwrite an existing wallet.
// The mnemonic is returned once for backup; password must be []byte for
// security (caller should zero it after use).
func (s *Service) Create(password []byte, wordCount int) (*model.CreateResponse, error) {
	if s.store.Exists() {
		return nil, model.ErrWalletExists
	}
	if wordCount == 0 {
		wordCount = 12
	}

	phrase, err := keys.NewPhrase(wordCount)
	if err != nil {
		return nil, err
	}
	addr, err := keys.DeriveAddress(phrase)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(phrase, addr.Hex(), password); err != nil {
		return nil, err
	}
	log.Info().Str("address", addr.Hex()).Msg("wallet created")
	return &model.CreateResponse{Address: addr.Hex(), Mnemonic: phrase}, nil
}

// Restore imports an existing recovery phrase. Refuses to overwrite an
// existing wallet; the caller must reset first, which makes replacing a
// stored phrase an explicit two-step action.
func (s *Service) Restore(password []byte, mnemonic string) (*model.RestoreResponse, error) {
	if s.store.Exists() {
		return nil, model.ErrWalletExists
	}

	phrase := keys.NormalizePhrase(mnemonic)
	addr, err := keys.DeriveAddress(phrase)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(phrase, addr.Hex(), password); err != nil {
		return nil, err
	}
	log.Info().Str("address", addr.Hex()).Msg("wallet restored")
	return &model.RestoreResponse{Address: addr.Hex()}, nil
}

// Reset deletes the stored phrase. The account is unrecoverable
// afterwards unless the user kept the mnemonic backup.
func (s *Service) Reset() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	log.Info().Msg("wallet reset")
	return nil
}

// Phrase reveals the stored mnemonic for backup. password must be
// []byte for security (caller should zero it after use).
func (s *Service) Phrase(password []byte) (*model.PhraseResponse, error) {
	phrase, ok, err := s.store.Load(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNoWallet
	}
	return &model.PhraseResponse{Mnemonic: phrase}, nil
}

// Receive returns the wallet address with a QR code for sharing. Works
// without the password since the address is not a secret.
func (s *Service) Receive() (*model.ReceiveResponse, error) {
	addr, err := s.store.Address()
	if err != nil {
		return nil, err
	}
	qr, err := generateQRCode(addr)
	if err != nil {
		return nil, err
	}
	return &model.ReceiveResponse{Address: addr, QR: qr}, nil
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// Balances aggregates holdings across all chains. When some chains are
// unreachable the response is marked partial and still returned.
func (s *Service) Balances(ctx context.Context) (*model.BalancesResponse, error) {
	addr, err := s.store.Address()
	if err != nil {
		return nil, err
	}

	items, err := s.balances.FetchAll(ctx, addr)
	resp := &model.BalancesResponse{
		Address:      addr,
		FiatCurrency: s.fiatCurrency,
		Balances:     items,
	}
	if err != nil {
		var partial *model.PartialFailure
		if !errors.As(err, &partial) {
			return nil, err
		}
		resp.Partial = true
		resp.FailedChains = partial.FailedChains
	}

	for _, b := range items {
		resp.TotalFiat += b.FiatValue
	}
	// Highest value first, symbol as tiebreak, for stable presentation.
	sort.SliceStable(resp.Balances, func(i, j int) bool {
		if resp.Balances[i].FiatValue != resp.Balances[j].FiatValue {
			return resp.Balances[i].FiatValue > resp.Balances[j].FiatValue
		}
		return resp.Balances[i].Symbol < resp.Balances[j].Symbol
	})
	return resp, nil
}

// EstimateFee computes the cost of a prospective transfer without
// touching the key material.
func (s *Service) EstimateFee(ctx context.Context, req model.FeeRequest) (*model.FeeResponse, error) {
	addr, err := s.store.Address()
	if err != nil {
		return nil, err
	}
	cfg, err := s.registry.ConfigFor(req.ChainID)
	if err != nil {
		return nil, err
	}

	amountWei, err := parseAmount(req.Amount, req.ContractAddress, req.Decimals)
	if err != nil {
		return nil, err
	}

	est, err := s.fees.Estimate(ctx, fees.Request{
		ChainID:         req.ChainID,
		From:            ethcommon.HexToAddress(addr),
		Recipient:       req.To,
		AmountWei:       amountWei,
		ContractAddress: req.ContractAddress,
	})
	if err != nil {
		return nil, err
	}

	resp := &model.FeeResponse{
		ChainID:      est.ChainID,
		GasLimit:     est.GasLimit,
		FeeWei:       est.FeeWei.String(),
		FeeNative:    est.FeeNative,
		NativeSymbol: cfg.NativeSymbol,
	}
	if est.Dynamic() {
		resp.GasFeeCapWei = est.GasFeeCap.String()
		resp.GasTipCapWei = est.GasTipCap.String()
	} else {
		resp.GasPriceWei = est.GasPrice.String()
	}
	return resp, nil
}

// Send signs and broadcasts a transfer, blocking until confirmation or
// the confirmation wait elapses. The signing key exists only for the
// duration of the call. password must be []byte for security (caller
// should zero it after use).
func (s *Service) Send(ctx context.Context, password []byte, req model.SendRequest) (*model.SendResponse, error) {
	phrase, ok, err := s.store.Load(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNoWallet
	}

	amountWei, err := parseAmount(req.Amount, req.ContractAddress, req.Decimals)
	if err != nil {
		return nil, err
	}

	acct, err := keys.DeriveAccount(phrase)
	if err != nil {
		return nil, err
	}
	defer acct.Zero()

	tx, err := s.sender.Submit(ctx, acct, send.Request{
		ChainID:         req.ChainID,
		Recipient:       req.To,
		Amount:          req.Amount,
		AmountWei:       amountWei,
		ContractAddress: req.ContractAddress,
	})
	if err != nil {
		return nil, err
	}
	return &model.SendResponse{
		ID:          tx.ID,
		TxHash:      tx.Hash,
		Status:      tx.Status,
		ExplorerURL: tx.ExplorerURL,
		Reverted:    tx.Reverted,
	}, nil
}

// Transactions returns recent history for one chain, newest first.
func (s *Service) Transactions(ctx context.Context, chainID int64, limit int) (*model.HistoryResponse, error) {
	addr, err := s.store.Address()
	if err != nil {
		return nil, err
	}
	records, err := s.history.Fetch(ctx, chainID, addr, limit)
	if err != nil {
		return nil, err
	}
	return &model.HistoryResponse{Address: addr, ChainID: chainID, Transactions: records}, nil
}

// parseAmount converts a display amount to smallest units. Native
// transfers always use 18 decimals; token transfers use the token's
// declared decimals.
func parseAmount(amount, contractAddress string, decimals int) (*big.Int, error) {
	d := common.NativeDecimals
	if contractAddress != "" {
		if decimals <= 0 {
			return nil, fmt.Errorf("token decimals required for %s", contractAddress)
		}
		d = decimals
	}
	wei, err := common.ParseUnits(amount, d)
	if err != nil {
		return nil, err
	}
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %q", amount)
	}
	return wei, nil
}
