package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"voltybot/internal/domain"
)

var candleHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteCandlesToCSV writes candles to a CSV file, one row per bar.
func WriteCandlesToCSV(candles []*domain.Candle, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write(candleHeader)

	for _, c := range candles {
		writer.Write([]string{
			c.OpenTime.Format(time.RFC3339),
			c.CloseTime.Format(time.RFC3339),
			c.Symbol,
			c.Interval,
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadCandlesFromCSV reads candles previously written by WriteCandlesToCSV.
func ReadCandlesFromCSV(filename string) ([]*domain.Candle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV %s is empty", filename)
	}

	candles := make([]*domain.Candle, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		if len(rec) != len(candleHeader) {
			return nil, fmt.Errorf("row %d of %s has %d fields, want %d", i+2, filename, len(rec), len(candleHeader))
		}
		openTime, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: bad open_time: %w", i+2, filename, err)
		}
		closeTime, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: bad close_time: %w", i+2, filename, err)
		}
		vals := make([]float64, 5)
		for j, raw := range rec[4:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d of %s: bad %s: %w", i+2, filename, candleHeader[4+j], err)
			}
			vals[j] = v
		}
		candles = append(candles, &domain.Candle{
			OpenTime:  openTime,
			CloseTime: closeTime,
			Symbol:    rec[2],
			Interval:  rec[3],
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
			IsFinal:   true,
		})
	}
	return candles, nil
}
