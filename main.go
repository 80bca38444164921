package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"futures-signal-dashboard/config"
	"futures-signal-dashboard/internal/ai/llm"
	"futures-signal-dashboard/internal/api"
	"futures-signal-dashboard/internal/assetinfo"
	"futures-signal-dashboard/internal/binance"
	"futures-signal-dashboard/internal/engine"
	"futures-signal-dashboard/internal/events"
	"futures-signal-dashboard/internal/history"
	"futures-signal-dashboard/internal/logging"
	"futures-signal-dashboard/internal/sentiment"
	"futures-signal-dashboard/internal/signals"
	"futures-signal-dashboard/internal/store"
)

func main() {
	genConfig := flag.Bool("gen-config", false, "write a sample config.json and exit")
	flag.Parse()

	if *genConfig {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write sample config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("wrote config.json")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFormat := "console"
	if cfg.LoggingConfig.JSONFormat {
		logFormat = "json"
	}
	logger, err := logging.New(&logging.Config{
		Level:  strings.ToLower(cfg.LoggingConfig.Level),
		Format: logFormat,
		Output: cfg.LoggingConfig.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	logger.Info().Msg("futures signal dashboard starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable state store. Redis when configured, otherwise in-memory only.
	var st store.Store
	if cfg.RedisConfig.Enabled {
		st = store.NewRedisStore(store.RedisConfig{
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		}, logger)
	} else {
		logger.Warn().Msg("redis disabled, state will not survive restarts")
		st = store.NewMemoryStore()
	}
	defer st.Close()

	client := binance.NewClient(
		cfg.BinanceConfig.FuturesBaseURL,
		cfg.BinanceConfig.SpotBaseURL,
		time.Duration(cfg.BinanceConfig.TimeoutSeconds)*time.Second,
	)

	bus := events.NewBus()

	paramCache := signals.NewParameterCache()
	ledger := signals.NewDailyAlertLedger(time.Now)
	universe := signals.NewTradableUniverse(
		client,
		time.Duration(cfg.EngineConfig.UniverseTTLMinutes)*time.Minute,
		time.Now,
	)
	generator := signals.NewGenerator(client, paramCache, universe, logger)

	archive := history.NewArchive(logger)

	eng := engine.New(engine.Config{
		TickInterval: cfg.EngineConfig.TickInterval(),
		BoardSize:    cfg.EngineConfig.BoardSize,
		MaxSignalAge: cfg.EngineConfig.MaxSignalAge(),
	}, client, generator, paramCache, ledger, archive, st, bus, logger)
	eng.LoadState(ctx)
	eng.Start(ctx)
	defer eng.Stop()

	sentimentSvc := sentiment.NewService(
		client,
		bus,
		time.Duration(cfg.SentimentConfig.RefreshIntervalMinutes)*time.Minute,
		cfg.SentimentConfig.WorkerCount,
		logger,
	)
	if cfg.SentimentConfig.Enabled {
		sentimentSvc.Start(ctx)
		defer sentimentSvc.Stop()
	}

	var validator *llm.Validator
	if cfg.AIConfig.Enabled {
		llmCfg := llm.DefaultClientConfig()
		llmCfg.Provider = llm.Provider(cfg.AIConfig.LLMProvider)
		llmCfg.Model = cfg.AIConfig.LLMModel
		switch llmCfg.Provider {
		case llm.ProviderClaude:
			llmCfg.APIKey = cfg.AIConfig.ClaudeAPIKey
		case llm.ProviderOpenAI:
			llmCfg.APIKey = cfg.AIConfig.OpenAIAPIKey
		case llm.ProviderDeepSeek:
			llmCfg.APIKey = cfg.AIConfig.DeepSeekAPIKey
		default:
			llmCfg.APIKey = cfg.AIConfig.GeminiAPIKey
		}
		validator = llm.NewValidator(llm.NewClient(llmCfg), logger)
	}

	assets := assetinfo.NewService(logger)

	server := api.NewServer(api.Config{
		Port:             cfg.ServerConfig.Port,
		AllowedOrigins:   cfg.ServerConfig.Origins(),
		RateLimitPerMin:  cfg.ServerConfig.RateLimitPerMinute,
		ResponseCacheTTL: time.Duration(cfg.ServerConfig.ResponseCacheSeconds) * time.Second,
	}, eng, archive, sentimentSvc, assets, validator, st, bus, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	cancel()
	logger.Info().Msg("futures signal dashboard stopped")
}
