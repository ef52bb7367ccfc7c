package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"voltybot/internal/adapters/logger"
	"voltybot/internal/position"
	"voltybot/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	// Binance API. Keys are optional: market data endpoints are public.
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Market
	Symbol   string
	Interval string // candle timeframe, e.g. "1m", "1h"

	// Strategy
	StrategyID     string
	StrategyParams strategy.Config

	// Paper trading
	InitialCapital  float64
	Risk            position.RiskSettings
	CandleCacheSize int // number of closed candles kept for evaluation

	// Database
	DBPath string

	// State export/import
	StateFilePath string // optional; empty disables persistence to file

	// Logging
	LogLevel logger.LogLevel

	// Connection Settings
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Market
	cfg.Symbol = getEnv("SYMBOL", "ETHUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.Interval = getEnv("INTERVAL", "1m")
	if cfg.Interval == "" {
		errs = append(errs, "INTERVAL must be set")
	}

	// Strategy selection
	cfg.StrategyID = getEnv("STRATEGY", strategy.IDVoltyExpansion)
	switch cfg.StrategyID {
	case strategy.IDBollingerVolume, strategy.IDMACD, strategy.IDRSI, strategy.IDVoltyExpansion:
	default:
		errs = append(errs, fmt.Sprintf("unknown STRATEGY %q", cfg.StrategyID))
	}

	// Strategy parameters (defaults match the dashboard presets)
	cfg.StrategyParams = strategy.Config{
		Bollinger: strategy.BollingerVolumeConfig{
			Period:            getEnvAsInt("BOLLINGER_PERIOD", 20),
			StdDevMultiplier:  getEnvAsFloat("BOLLINGER_STDDEV_MULT", 2.0),
			VolumeCandles:     getEnvAsInt("BOLLINGER_VOLUME_CANDLES", 3),
			VolumeIncreasePct: getEnvAsFloat("BOLLINGER_VOLUME_INCREASE_PCT", 20.0),
		},
		MACD: strategy.MACDConfig{
			FastPeriod:   getEnvAsInt("MACD_FAST_PERIOD", 12),
			SlowPeriod:   getEnvAsInt("MACD_SLOW_PERIOD", 26),
			SignalPeriod: getEnvAsInt("MACD_SIGNAL_PERIOD", 9),
		},
		RSI: strategy.RSIConfig{
			Period:     getEnvAsInt("RSI_PERIOD", 14),
			Overbought: getEnvAsFloat("RSI_OVERBOUGHT", 70.0),
			Oversold:   getEnvAsFloat("RSI_OVERSOLD", 30.0),
		},
		Volty: strategy.VoltyConfig{
			Length:        getEnvAsInt("VOLTY_LENGTH", 5),
			ATRMultiplier: getEnvAsFloat("VOLTY_ATR_MULTIPLIER", 0.75),
		},
	}

	// Paper trading
	var err error
	cfg.InitialCapital, err = getEnvAsFloatRequired("INITIAL_CAPITAL", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CAPITAL: %v", err))
	} else if cfg.InitialCapital <= 0 {
		errs = append(errs, "INITIAL_CAPITAL must be positive")
	}

	cfg.Risk = position.RiskSettings{
		UseTakeProfit:   getEnvAsBool("USE_TAKE_PROFIT", true),
		TakeProfitPct:   getEnvAsFloat("TAKE_PROFIT_PCT", 5.0),
		UseStopLoss:     getEnvAsBool("USE_STOP_LOSS", true),
		StopLossPct:     getEnvAsFloat("STOP_LOSS_PCT", 2.0),
		UseTrailingStop: getEnvAsBool("USE_TRAILING_STOP", false),
		TrailingStopPct: getEnvAsFloat("TRAILING_STOP_PCT", 1.5),
		PositionSizePct: getEnvAsFloat("POSITION_SIZE_PCT", 10.0),
		MaxPositions:    getEnvAsInt("MAX_POSITIONS", 1),
	}
	if err := cfg.Risk.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid risk settings: %v", err))
	}

	cfg.CandleCacheSize = getEnvAsInt("CANDLE_CACHE_SIZE", 500)
	if cfg.CandleCacheSize <= 0 {
		errs = append(errs, "CANDLE_CACHE_SIZE must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/voltybot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// State file
	cfg.StateFilePath = getEnv("STATE_FILE", "")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
