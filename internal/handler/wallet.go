// Package handler exposes the wallet service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"kiwiwallet/internal/config"
	"kiwiwallet/internal/model"
	"kiwiwallet/wallet"
)

// WalletHandler holds the wallet service for HTTP operations
type WalletHandler struct {
	svc *wallet.Service
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(svc *wallet.Service) *WalletHandler {
	return &WalletHandler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// 500s; upstream unavailability is a 502 so clients can tell the wallet
// itself is healthy.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ""
	switch {
	case errors.Is(err, model.ErrInvalidAddress):
		status, code = http.StatusBadRequest, "INVALID_ADDRESS"
	case errors.Is(err, model.ErrInvalidPhrase):
		status, code = http.StatusUnprocessableEntity, "INVALID_PHRASE"
	case errors.Is(err, model.ErrInsufficientFunds):
		status, code = http.StatusBadRequest, "INSUFFICIENT_FUNDS"
	case errors.Is(err, model.ErrUnsupportedChain):
		status, code = http.StatusBadRequest, "UNSUPPORTED_CHAIN"
	case errors.Is(err, model.ErrWalletExists):
		status, code = http.StatusConflict, "WALLET_EXISTS"
	case errors.Is(err, model.ErrNoWallet):
		status, code = http.StatusNotFound, "NO_WALLET"
	case errors.Is(err, model.ErrRPCUnavailable), errors.Is(err, model.ErrPriceUnavailable):
		status, code = http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}

// Create handles POST /wallet/create
// @Summary      Create new wallet
// @Description  Generates a recovery phrase, derives the account and stores the phrase encrypted. The mnemonic is returned once for backup.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateRequest  false  "Creation options"
// @Success      200      {object}  model.CreateResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /wallet/create [post]
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
			return
		}
	}

	// Get password as []byte, use it, then zero it immediately
	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes) // Always clear password from memory

	resp, err := h.svc.Create(passwordBytes, req.WordCount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Restore handles POST /wallet/restore
// @Summary      Restore wallet from recovery phrase
// @Description  Imports a BIP-39 phrase and stores it encrypted. Fails if a wallet already exists; delete it first.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.RestoreRequest  true  "Recovery phrase"
// @Success      200      {object}  model.RestoreResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Router       /wallet/restore [post]
func (h *WalletHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes)

	resp, err := h.svc.Restore(passwordBytes, req.Mnemonic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Wallet handles DELETE /wallet
// @Summary      Delete stored wallet
// @Description  Removes the encrypted phrase. The account is unrecoverable without the mnemonic backup.
// @Tags         wallet
// @Produce      json
// @Success      204
// @Router       /wallet [delete]
func (h *WalletHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed. Should be DELETE", http.StatusMethodNotAllowed)
		return
	}

	if err := h.svc.Reset(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Phrase handles GET /wallet/phrase
// @Summary      Reveal recovery phrase
// @Description  Decrypts and returns the stored mnemonic for backup
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.PhraseResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallet/phrase [get]
func (h *WalletHandler) Phrase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes)

	resp, err := h.svc.Phrase(passwordBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Receive handles GET /wallet/receive
// @Summary      Get receive address with QR code
// @Description  Returns the wallet address and a base64 PNG QR code
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.ReceiveResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallet/receive [get]
func (h *WalletHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	resp, err := h.svc.Receive()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Balances handles GET /wallet/balances
// @Summary      Get aggregated balances
// @Description  Fetches balances across all supported chains with fiat values. Marked partial when some chains are unreachable.
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BalancesResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /wallet/balances [get]
func (h *WalletHandler) Balances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	resp, err := h.svc.Balances(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Fee handles POST /wallet/fee
// @Summary      Estimate transfer fee
// @Description  Simulates the transfer and returns gas limit and fee data
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.FeeRequest  true  "Transfer to estimate"
// @Success      200      {object}  model.FeeResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/fee [post]
func (h *WalletHandler) Fee(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.FeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.svc.EstimateFee(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /wallet/send
// @Summary      Send a transfer
// @Description  Signs and broadcasts a native or token transfer, waiting for confirmation
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.SendRequest  true  "Transfer data"
// @Success      200      {object}  model.SendResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallet/send [post]
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes)

	resp, err := h.svc.Send(r.Context(), passwordBytes, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Transactions handles GET /wallet/transactions
// @Summary      Get transaction history
// @Description  Returns recent transactions for one chain, newest first, classified as INCOMING, OUTGOING or SELF
// @Tags         wallet
// @Produce      json
// @Param        chainId  query     int  true   "Chain id (1 or 56)"
// @Param        limit    query     int  false  "Page size"
// @Success      200      {object}  model.HistoryResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/transactions [get]
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	chainID, err := strconv.ParseInt(r.URL.Query().Get("chainId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "invalid chainId: must be an integer"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "invalid limit: must be a non-negative integer"})
			return
		}
	}

	resp, err := h.svc.Transactions(r.Context(), chainID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
