package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"

	"voltybot/config"
	"voltybot/internal/adapters/logger"
	"voltybot/internal/backtest"
	"voltybot/internal/utils"
)

func main() {
	dataFile := flag.String("data", "", "CSV file of candles to replay (see cmd/fetch_candles)")
	positionSize := flag.Float64("size", 1.0, "base-asset size per trade")
	flag.Parse()

	if *dataFile == "" {
		log.Fatal("FATAL: -data is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 2. Load candles from CSV
	candles, err := utils.ReadCandlesFromCSV(*dataFile)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error loading candles", map[string]interface{}{"file": *dataFile})
		log.Fatalf("Error loading candles: %v", err)
	}
	appLogger.Info(context.Background(), "Loaded candles", map[string]interface{}{"file": *dataFile, "count": len(candles)})

	// 3. Run the backtest with the configured strategy and risk settings
	result, err := backtest.Run(context.Background(), backtest.Config{
		Symbol:         cfg.Symbol,
		StrategyID:     cfg.StrategyID,
		StrategyParams: cfg.StrategyParams,
		InitialCapital: cfg.InitialCapital,
		PositionSize:   *positionSize,
		Settings:       cfg.Risk,
	}, candles, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "Backtest failed")
		log.Fatalf("Backtest failed: %v", err)
	}

	// 4. Print summary
	s := result.Summary
	fmt.Printf("\n=== Backtest Results: %s on %s (%d candles) ===\n", cfg.StrategyID, cfg.Symbol, len(candles))
	fmt.Printf("Trades:        %d (%d wins / %d losses)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Printf("Win rate:      %.2f%%\n", s.WinRate)
	fmt.Printf("Net profit:    %.2f (%.2f%% return)\n", s.NetProfit, s.ReturnPct)
	if math.IsInf(s.ProfitFactor, 1) {
		fmt.Printf("Profit factor: inf\n")
	} else {
		fmt.Printf("Profit factor: %.2f\n", s.ProfitFactor)
	}
	fmt.Printf("Max drawdown:  %.2f%%\n", s.MaxDrawdownPct)
	fmt.Printf("Avg trade:     %.2f (win %.2f / loss %.2f)\n", s.AverageTrade, s.AverageWin, s.AverageLoss)

	fmt.Println("\n--- Trades ---")
	for _, tr := range result.Trades {
		fmt.Printf("%s  %-5s entry %.2f exit %.2f size %.4f pnl %+.2f (%+.2f%%) %s\n",
			tr.ExitTime.Format("2006-01-02 15:04"), tr.Side, tr.EntryPrice, tr.ExitPrice, tr.Size, tr.PnL, tr.PnLPct, tr.ExitReason)
	}
}
