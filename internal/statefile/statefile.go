// Package statefile implements the settings/paper-trading export document.
// An export followed by an import reproduces identical settings and, when
// present, identical paper-trading state.
package statefile

import (
	"encoding/json"
	"fmt"
	"time"

	"voltybot/internal/domain"
	"voltybot/internal/position"
	"voltybot/internal/strategy"
)

// Version is the document format version.
const Version = "1.0"

// Settings is the recognized configuration surface of the bot. Unknown keys
// in an imported document are ignored.
type Settings struct {
	Symbol          string          `json:"symbol"`
	Timeframe       string          `json:"timeframe"`
	StrategyID      string          `json:"strategyId"`
	StrategyParams  strategy.Config `json:"strategyParams"`
	PositionSizePct float64         `json:"positionSizePct,omitempty"`
	PositionSizeAbs float64         `json:"positionSizeAbs,omitempty"`
	MaxPositions    int             `json:"maxPositions"`
	UseTakeProfit   bool            `json:"useTakeProfit"`
	TakeProfitPct   float64         `json:"takeProfitPct"`
	UseStopLoss     bool            `json:"useStopLoss"`
	StopLossPct     float64         `json:"stopLossPct"`
	UseTrailingStop bool            `json:"useTrailingStop"`
	TrailingStopPct float64         `json:"trailingStopPct"`
}

// RiskSettings converts the document settings into manager risk settings.
func (s *Settings) RiskSettings() position.RiskSettings {
	return position.RiskSettings{
		UseTakeProfit:   s.UseTakeProfit,
		TakeProfitPct:   s.TakeProfitPct,
		UseStopLoss:     s.UseStopLoss,
		StopLossPct:     s.StopLossPct,
		UseTrailingStop: s.UseTrailingStop,
		TrailingStopPct: s.TrailingStopPct,
		PositionSizePct: s.PositionSizePct,
		MaxPositions:    s.MaxPositions,
	}
}

// PaperState captures the paper-trading ledger at export time.
type PaperState struct {
	Balance   float64            `json:"balance"`
	Positions []*domain.Position `json:"positions"`
	Trades    []*domain.Trade    `json:"trades"`
}

// Document is the export/import envelope.
type Document struct {
	Version      string      `json:"version"`
	Timestamp    time.Time   `json:"timestamp"`
	Settings     *Settings   `json:"settings"`
	PaperTrading bool        `json:"paperTrading"`
	PaperState   *PaperState `json:"paperTradingState,omitempty"`
}

// Export serializes a document, stamping the format version and timestamp
// when unset.
func Export(doc *Document) ([]byte, error) {
	if doc.Settings == nil {
		return nil, fmt.Errorf("cannot export document without settings")
	}
	if doc.Version == "" {
		doc.Version = Version
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now().UTC()
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import parses an exported document. A document without a settings object
// is rejected as malformed.
func Import(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid settings file: %w", err)
	}
	if doc.Settings == nil {
		return nil, fmt.Errorf("invalid settings file format: missing settings")
	}
	return &doc, nil
}
