// Command checker runs one portfolio pass over the watchlist file and prints
// the grouped results to stdout. It shares all wiring with the server but
// skips the HTTP layer, which makes it handy for cron jobs and smoke checks.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"portfolio_tracker/internal/app/provider"
	"portfolio_tracker/internal/app/service"
	"portfolio_tracker/internal/app/store"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/httpclient"
	clientprovider "portfolio_tracker/internal/infrastructure/network/client"
	"portfolio_tracker/internal/infrastructure/tokenregistry"
	"portfolio_tracker/internal/infrastructure/watchlist"
	"portfolio_tracker/internal/pkg/logger"
	"portfolio_tracker/internal/pkg/retry"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type walletReport struct {
	Address       string                  `json:"address"`
	Groups        []entity.GroupedAsset   `json:"groups"`
	TotalValueUSD float64                 `json:"totalValueUsd"`
	Errors        []entity.PortfolioError `json:"errors,omitempty"`
}

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.InitSlog(cfg.Logging.Level)
	portLogger := logger.NewSlogAdapter()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	chainProvider := provider.NewChainDefinitionProvider(cfg.EnabledChains, portLogger)
	clientProv := clientprovider.NewEVMClientProvider(cfg, portLogger)
	tokenProvider := tokenregistry.NewFileLoader(cfg.TokenDir, portLogger)
	oracleClient := httpclient.NewOracleClient(
		cfg.Oracle.BaseURL,
		time.Duration(cfg.Oracle.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
		cfg.Oracle.MaxKeysPerBatch,
	)

	priceStore := store.New()
	retryCfg := retry.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: time.Duration(cfg.Retry.InitialDelayMillis) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxDelayMillis) * time.Millisecond,
		Multiplier:   cfg.Retry.Multiplier,
	}

	portfolioSvc := service.NewPortfolioService(
		chainProvider, clientProv, tokenProvider, portLogger,
		cfg.Performance.MaxConcurrentRoutines,
	)
	priceSvc := service.NewPriceService(
		oracleClient, chainProvider, priceStore, portLogger,
		cfg.Oracle.MaxKeysPerBatch, retryCfg,
	)

	var testnetIDs []uint64
	for _, chainDef := range chainProvider.GetAllChainDefinitions() {
		if chainDef.Testnet {
			testnetIDs = append(testnetIDs, chainDef.ChainID)
		}
	}
	aggregator := service.NewSymbolAggregator(testnetIDs)

	addresses, err := watchlist.NewFileLoader(cfg.WalletFile, portLogger).GetAddresses()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load watchlist: %v\n", err)
		os.Exit(1)
	}
	if len(addresses) == 0 {
		fmt.Fprintln(os.Stderr, "watchlist is empty, nothing to check")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	reports := make([]walletReport, 0, len(addresses))
	for _, address := range addresses {
		report := walletReport{Address: address}

		assets, serviceErrors, err := portfolioSvc.FetchPortfolio(ctx, address)
		report.Errors = serviceErrors
		if err != nil {
			report.Errors = append(report.Errors, entity.PortfolioError{
				WalletAddress: address,
				Message:       err.Error(),
			})
			reports = append(reports, report)
			continue
		}

		if err := priceSvc.FetchPrices(ctx, assets); err != nil {
			portLogger.Warn("No prices available for wallet", "address", address, "error", err)
		}
		assets = priceSvc.ApplyPrices(assets)

		report.Groups = aggregator.GroupBySymbol(assets)
		for _, group := range report.Groups {
			report.TotalValueUSD += group.TotalValue
		}
		reports = append(reports, report)
	}

	out, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
