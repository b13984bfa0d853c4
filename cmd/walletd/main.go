// Command walletd runs the local wallet HTTP service. The vault
// password is prompted once at startup; it never appears in config
// files or the environment.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kiwiwallet/internal/api"
	"kiwiwallet/internal/balances"
	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/client"
	"kiwiwallet/internal/config"
	"kiwiwallet/internal/fees"
	"kiwiwallet/internal/history"
	"kiwiwallet/internal/prices"
	"kiwiwallet/internal/send"
	"kiwiwallet/internal/vault"
	"kiwiwallet/wallet"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg := config.Get()

	if err := config.PromptForPassword(); err != nil {
		log.Fatal().Err(err).Msg("failed to read vault password")
	}

	registry := chains.New(cfg.EthRPCURL, cfg.BscRPCURL)
	nodes := client.NewNodes(registry)
	defer nodes.Close()

	indexer := client.NewIndexerClient(cfg.CovalentBaseURL, cfg.CovalentAPIKey, cfg.FiatCurrency)
	converter := prices.NewConverter(
		client.NewCoinGeckoClient(cfg.CoinGeckoBaseURL),
		time.Duration(cfg.PriceRefreshSeconds)*time.Second,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	converter.Start(ctx)

	estimator := fees.New(nodes, registry)
	svc := wallet.New(wallet.Deps{
		Store:        vault.New(cfg.VaultPath),
		Registry:     registry,
		Balances:     balances.New(registry, indexer, converter, cfg.FiatCurrency),
		Fees:         estimator,
		Sender:       send.New(nodes, registry, estimator, time.Duration(cfg.ConfirmWaitSeconds)*time.Second),
		History:      history.New(registry, indexer),
		FiatCurrency: cfg.FiatCurrency,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.SetupRouter(svc),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("fiat", cfg.FiatCurrency).Msg("wallet service listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("wallet service stopped")
}
