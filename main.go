package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"signal-scanner/config"
	"signal-scanner/internal/api"
	"signal-scanner/internal/auth"
	"signal-scanner/internal/cache"
	"signal-scanner/internal/candles"
	"signal-scanner/internal/confluence"
	"signal-scanner/internal/events"
	"signal-scanner/internal/logging"
	"signal-scanner/internal/market"
	"signal-scanner/internal/metrics"
	"signal-scanner/internal/patterns"
	"signal-scanner/internal/scanner"
	"signal-scanner/internal/signals"
	"signal-scanner/internal/store"
	"signal-scanner/internal/vault"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	sampleConfig := flag.Bool("sample-config", false, "write a sample config file and exit")
	flag.Parse()

	if *sampleConfig {
		if err := config.GenerateSampleConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "writing sample config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("sample config written to %s\n", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	log := logger.With().Str("component", "main").Logger()
	log.Info().Str("config", *configPath).Msg("starting signal scanner")

	ctx := context.Background()

	eventBus := events.NewEventBus()
	recorder := metrics.New(prometheus.DefaultRegisterer)

	// Vault-held feed credentials override the config when present.
	apiKey := cfg.MarketConfig.APIKey
	vaultClient, err := vault.NewClient(vault.Config{
		Enabled:    cfg.VaultConfig.Enabled,
		Address:    cfg.VaultConfig.Address,
		Token:      cfg.VaultConfig.Token,
		MountPath:  cfg.VaultConfig.MountPath,
		SecretPath: cfg.VaultConfig.SecretPath,
		TLSEnabled: cfg.VaultConfig.TLSEnabled,
		CACert:     cfg.VaultConfig.CACert,
	}, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to vault")
	}
	if cfg.VaultConfig.Enabled {
		creds, err := vaultClient.GetCredentials(ctx, "market-feed")
		if err != nil {
			log.Warn().Err(err).Msg("no feed credentials in vault, using config values")
		} else if creds != nil {
			apiKey = creds.APIKey
			log.Info().Msg("feed credentials loaded from vault")
		}
	}

	var repo *store.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := store.NewDB(store.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to database")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			log.Fatal().Err(err).Msg("running migrations")
		}
		repo = store.NewRepository(db)
		log.Info().Msg("database connected")
	}

	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cache.Config{
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		}, logger)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without scan cache")
			cacheService = nil
		}
	}

	dataCache := market.NewDataCache(
		time.Duration(cfg.MarketConfig.PriceCacheTTL)*time.Second,
		time.Duration(cfg.MarketConfig.CandleCacheTTL)*time.Second,
	)
	source := market.NewClient(apiKey, cfg.MarketConfig.BaseURL, dataCache, logger)

	var stream *market.TradeStream
	if cfg.MarketConfig.StreamEnabled {
		stream = market.NewTradeStream(cfg.MarketConfig.StreamURL, cfg.ScannerConfig.DefaultSymbols, dataCache, logger)
		stream.SetPriceCallback(func(symbol string, price float64) {
			recorder.SetLastPrice(symbol, price)
			eventBus.PublishPriceUpdate(symbol, price)
		})
		stream.Start()
		defer stream.Stop()
	}

	engine := patterns.NewEngine(logger, patterns.DefaultChartConfig())
	grouper := confluence.NewGrouper()
	if cfg.ScoringConfig.ConfluenceBoost > 0 {
		if err := grouper.SetBoost(cfg.ScoringConfig.ConfluenceBoost); err != nil {
			log.Fatal().Err(err).Msg("invalid confluence boost")
		}
	}
	scorer := signals.NewScorer()
	analyzer := scanner.NewAnalyzer(engine, grouper, scorer, logger)

	scanCfg := scanner.Config{
		WorkerCount:     cfg.ScannerConfig.WorkerCount,
		ScanTimeout:     time.Duration(cfg.ScannerConfig.ScanTimeout) * time.Second,
		IntervalMinutes: cfg.ScannerConfig.IntervalMinutes,
		CandleLookback:  cfg.ScannerConfig.CandleLookback,
		MinQuality:      cfg.ScoringConfig.MinQuality,
		Enhanced:        cfg.ScoringConfig.EnhancedFilters,
	}
	sc := scanner.NewScanner(source, analyzer, scanCfg, eventBus, recorder, logger)

	aggregator := candles.NewAggregator(cfg.TickLocation(), cfg.VolumeLocation())

	var authService *auth.Service
	if cfg.AuthConfig.Enabled {
		jwtManager := auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
		authService, err = auth.NewService(jwtManager, cfg.AuthConfig.SeedUsername, cfg.AuthConfig.SeedPassword, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("initializing auth")
		}
		log.Info().Msg("authentication enabled")
	}

	server := api.NewServer(api.ServerConfig{
		Port:            cfg.ServerConfig.Port,
		Host:            cfg.ServerConfig.Host,
		AllowedOrigins:  cfg.ServerConfig.AllowedOrigins,
		ProductionMode:  cfg.ServerConfig.ProductionMode,
		ReadTimeout:     time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		RateLimit:       cfg.ServerConfig.RateLimit,
		RateLimitWindow: time.Duration(cfg.ServerConfig.RateLimitWindow) * time.Second,
		MetricsEnabled:  cfg.MetricsConfig.Enabled,
	}, sc, analyzer, source, aggregator, scanCfg, repo, cacheService, eventBus, recorder, authService, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("stopped")
}
