// Package trade defines the normalized trade records consumed by the
// replay engine and the enriched closed-trade log it produces
package trade

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
)

var (
	// ErrInvalidDirection is returned for a direction outside buy/sell
	ErrInvalidDirection = errors.New("invalid trade direction")
	// ErrTimeOrder is returned when a trade closes before it opens
	ErrTimeOrder = errors.New("close time cannot precede open time")
	// ErrMissingField is returned when a required record field is unset
	ErrMissingField = errors.New("missing required trade field")
)

// Direction is the side of a trade
type Direction string

// Supported trade directions
const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// ParseDirection normalizes a direction string case-insensitively.
// Stop-entry variants collapse onto their market side
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "buystop", "buy stop":
		return Buy, nil
	case "sell", "sellstop", "sell stop":
		return Sell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Record is one closed trade from a strategy's isolated backtest. It is
// immutable input; sizing and P&L are recomputed during replay
type Record struct {
	StrategyID   string          `json:"strategy_id"`
	Ticket       string          `json:"ticket"`
	Symbol       string          `json:"symbol"`
	Direction    Direction       `json:"direction"`
	OpenTime     time.Time       `json:"open_time"`
	CloseTime    time.Time       `json:"close_time"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	ClosePrice   decimal.Decimal `json:"close_price"`
	StopPrice    decimal.Decimal `json:"stop_price"`
	OriginalSize decimal.Decimal `json:"original_size"`
	OriginalPNL  decimal.Decimal `json:"original_pnl"`
	RiskPct      float64         `json:"risk_pct"`
	OriginalMAE  null.Float64    `json:"original_mae"`
	OriginalMFE  null.Float64    `json:"original_mfe"`
}

// Validate performs the integrity checks the engine relies on upstream
func (r *Record) Validate() error {
	if r.StrategyID == "" || r.Symbol == "" {
		return fmt.Errorf("%w for ticket %v", ErrMissingField, r.Ticket)
	}
	if _, err := ParseDirection(string(r.Direction)); err != nil {
		return fmt.Errorf("ticket %v: %w", r.Ticket, err)
	}
	if r.OpenTime.IsZero() || r.CloseTime.IsZero() {
		return fmt.Errorf("%w: ticket %v has no open/close time", ErrMissingField, r.Ticket)
	}
	if r.CloseTime.Before(r.OpenTime) {
		return fmt.Errorf("%w: ticket %v", ErrTimeOrder, r.Ticket)
	}
	return nil
}

// ValidateAll validates a full strategy trade list
func ValidateAll(records []Record) error {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Closed is a replayed trade enriched with portfolio context. Forced
// end-of-horizon liquidations carry null original risk/MAE/MFE fields;
// that is a documented deviation, not an error
type Closed struct {
	StrategyID   string          `json:"strategy_id"`
	Ticket       string          `json:"ticket"`
	Symbol       string          `json:"symbol"`
	Direction    Direction       `json:"direction"`
	OpenTime     time.Time       `json:"open_time"`
	CloseTime    time.Time       `json:"close_time"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	ClosePrice   decimal.Decimal `json:"close_price"`
	StopPrice    decimal.Decimal `json:"stop_price"`
	SizedLots    decimal.Decimal `json:"sized_lots"`
	OriginalSize decimal.Decimal `json:"original_size"`
	RealizedPNL  decimal.Decimal `json:"realized_pnl"`
	EntryEquity  decimal.Decimal `json:"entry_equity"`
	ExitEquity   decimal.Decimal `json:"exit_equity"`
	RiskPct      null.Float64    `json:"risk_pct"`
	OriginalPNL  null.Float64    `json:"original_pnl"`
	OriginalMAE  null.Float64    `json:"original_mae"`
	OriginalMFE  null.Float64    `json:"original_mfe"`
	ForcedClose  bool            `json:"forced_close"`
}
