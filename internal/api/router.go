package api

import (
	"net/http"

	"kiwiwallet/internal/handler"
	"kiwiwallet/wallet"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(svc *wallet.Service) http.Handler {
	walletHandler := handler.NewWalletHandler(svc)

	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Wallet endpoints
	mux.HandleFunc("/wallet", walletHandler.Wallet)
	mux.HandleFunc("/wallet/create", walletHandler.Create)
	mux.HandleFunc("/wallet/restore", walletHandler.Restore)
	mux.HandleFunc("/wallet/phrase", walletHandler.Phrase)
	mux.HandleFunc("/wallet/receive", walletHandler.Receive)
	mux.HandleFunc("/wallet/balances", walletHandler.Balances)
	mux.HandleFunc("/wallet/fee", walletHandler.Fee)
	mux.HandleFunc("/wallet/send", walletHandler.Send)
	mux.HandleFunc("/wallet/transactions", walletHandler.Transactions)

	return mux
}
