package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio_tracker/internal/app/provider"
	"portfolio_tracker/internal/app/service"
	"portfolio_tracker/internal/app/store"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/explorer"
	"portfolio_tracker/internal/infrastructure/httpclient"
	clientprovider "portfolio_tracker/internal/infrastructure/network/client"
	"portfolio_tracker/internal/infrastructure/restapi"
	"portfolio_tracker/internal/infrastructure/tokenregistry"
	"portfolio_tracker/internal/pkg/logger"
	"portfolio_tracker/internal/pkg/retry"
	"portfolio_tracker/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	// Route slog through zap so both logging APIs end up in one stream.
	logger.Use(slog.New(zapslog.NewHandler(zapLogger.Core())))
	portLogger := logger.NewSlogAdapter()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.String("path", cfgPath), zap.Error(err))
	}

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	chainProvider := provider.NewChainDefinitionProvider(cfg.EnabledChains, portLogger)
	clientProv := clientprovider.NewEVMClientProvider(cfg, portLogger)
	tokenProvider := tokenregistry.NewFileLoader(cfg.TokenDir, portLogger)

	oracleClient := httpclient.NewOracleClient(
		cfg.Oracle.BaseURL,
		time.Duration(cfg.Oracle.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
		cfg.Oracle.MaxKeysPerBatch,
	)
	explorerClient := explorer.NewEtherscanClient(
		cfg.Explorer.BaseURL,
		cfg.Explorer.APIKey,
		time.Duration(cfg.Explorer.RequestTimeoutMillis)*time.Millisecond,
		cfg.Explorer.RequestsPerSecond,
		zapLogger,
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
	historySvc := service.NewHistoryService(
		oracleClient, priceStore, portLogger,
		cfg.History.RequestsPerSecond,
		time.Duration(cfg.History.RequestDelayMillis)*time.Millisecond,
		cfg.History.SpanDays,
		cfg.History.TrendPoints,
		retryCfg,
	)
	gasSvc := service.NewGasService(
		explorerClient,
		time.Duration(cfg.Explorer.GasCacheTTLMinutes)*time.Minute,
		portLogger,
	)
	aggregator := service.NewSymbolAggregator(testnetChainIDs(chainProvider))

	portfolioHandler := restapi.NewPortfolioHandler(
		portfolioSvc, priceSvc, historySvc, gasSvc, aggregator, priceStore, portLogger,
	)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	restapi.SetupRouter(router, portfolioHandler)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pprofRouter := router.Group("/debug/pprof")
	{
		pprofRouter.GET("/", gin.WrapF(pprof.Index))
		pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
		pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
		pprofRouter.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
		pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting")
}

func testnetChainIDs(cp *provider.ChainDefinitionProvider) []uint64 {
	var ids []uint64
	for _, chainDef := range cp.GetAllChainDefinitions() {
		if chainDef.Testnet {
			ids = append(ids, chainDef.ChainID)
		}
	}
	return ids
}
