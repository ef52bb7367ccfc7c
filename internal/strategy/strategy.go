// Package strategy implements the signal-producing strategy variants behind
// a single factory. Each variant is a pure evaluator over a candle history;
// selecting one is configuration, not a code fork.
package strategy

import (
	"fmt"

	"voltybot/internal/ports"
)

// Strategy variant identifiers.
const (
	IDBollingerVolume = "bollinger_volume"
	IDMACD            = "macd"
	IDRSI             = "rsi"
	IDVoltyExpansion  = "volty_expansion"
)

// Config holds the per-variant parameter records. Only the record matching
// the requested id is used; the rest are ignored.
type Config struct {
	Bollinger BollingerVolumeConfig `json:"bollinger"`
	MACD      MACDConfig            `json:"macd"`
	RSI       RSIConfig             `json:"rsi"`
	Volty     VoltyConfig           `json:"volty"`
}

// New creates the strategy variant identified by id.
func New(id string, cfg Config, logger ports.Logger) (ports.Strategy, error) {
	switch id {
	case IDBollingerVolume:
		return NewBollingerVolume(cfg.Bollinger, logger)
	case IDMACD:
		return NewMACD(cfg.MACD, logger)
	case IDRSI:
		return NewRSI(cfg.RSI, logger)
	case IDVoltyExpansion:
		return NewVolty(cfg.Volty, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ports.ErrUnknownStrategy, id)
	}
}
