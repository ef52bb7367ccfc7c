package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"

	"voltybot/config"
	"voltybot/internal/adapters/binanceclient"
	"voltybot/internal/adapters/logger"
	"voltybot/internal/adapters/sqlite"
	"voltybot/internal/app"
	"voltybot/internal/position"
	"voltybot/internal/statefile"
	"voltybot/internal/strategy"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// A previously exported settings file overrides the environment so a
	// restarted bot resumes exactly where it stopped.
	if cfg.StateFilePath != "" {
		if data, err := os.ReadFile(cfg.StateFilePath); err == nil {
			doc, err := statefile.Import(data)
			if err != nil {
				appLogger.Error(context.Background(), err, "FATAL: State file is malformed")
				log.Fatalf("FATAL: State file is malformed: %v", err)
			}
			cfg.Symbol = doc.Settings.Symbol
			cfg.Interval = doc.Settings.Timeframe
			cfg.StrategyID = doc.Settings.StrategyID
			cfg.StrategyParams = doc.Settings.StrategyParams
			cfg.Risk = doc.Settings.RiskSettings()
			appLogger.Info(context.Background(), "Settings loaded from state file", map[string]interface{}{
				"path":     cfg.StateFilePath,
				"symbol":   cfg.Symbol,
				"strategy": cfg.StrategyID,
			})
		}
	}

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Market Data Feed (Binance Adapter)
	feed, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance market data client initialized")

	// 5. Initialize Strategy
	strat, err := strategy.New(cfg.StrategyID, cfg.StrategyParams, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize strategy")
		log.Fatalf("FATAL: Failed to initialize strategy: %v", err)
	}
	appLogger.Info(context.Background(), "Strategy initialized", map[string]interface{}{"strategy": strat.Name()})

	// 6. Initialize Position Manager
	manager, err := position.NewManager(position.Config{
		Symbol:         cfg.Symbol,
		InitialCapital: cfg.InitialCapital,
		Settings:       cfg.Risk,
		Logger:         appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize position manager")
		log.Fatalf("FATAL: Failed to initialize position manager: %v", err)
	}

	// 7. Initialize and start the Trading Service
	service, err := app.NewTradingService(app.Deps{
		Config:    cfg,
		Logger:    appLogger,
		Feed:      feed,
		PosRepo:   repo,
		TradeRepo: repo,
		Strategy:  strat,
		Manager:   manager,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}

	if err := service.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading service exited with error")
		os.Exit(1)
	}
}
