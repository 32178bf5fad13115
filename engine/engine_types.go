package engine

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfoliosim/config"
	"portfoliosim/instrument"
	"portfoliosim/pricing"
	"portfoliosim/sizing"
	"portfoliosim/trade"
)

var (
	// ErrNoTrades is returned when no strategy contributes any trades
	ErrNoTrades = errors.New("no trades to simulate")
	// ErrDuplicatePosition is returned when a (strategy, ticket) pair
	// would be opened twice
	ErrDuplicatePosition = errors.New("position already open")
)

// EquitySample is one point of the portfolio equity curve
type EquitySample struct {
	Time          time.Time       `json:"time"`
	Equity        decimal.Decimal `json:"equity"`
	Cash          decimal.Decimal `json:"cash"`
	FloatingPNL   decimal.Decimal `json:"floating_pnl"`
	OpenPositions int             `json:"open_positions"`
}

// openPosition is engine-internal transient state for a live trade.
// Created exactly once at open and destroyed exactly once at close or
// forced liquidation
type openPosition struct {
	id          string
	record      trade.Record
	lots        decimal.Decimal
	entryEquity decimal.Decimal
}

// portfolioState is the single-owner mutable state threaded through the
// replay; cash only changes on a position close
type portfolioState struct {
	cash      decimal.Decimal
	open      map[string]*openPosition
	openOrder []string
	trades    []trade.Closed
	curve     []EquitySample
}

// Result is the output of one simulation run
type Result struct {
	RunID           string          `json:"run_id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	FinalEquity     decimal.Decimal `json:"final_equity"`
	TotalTrades     int             `json:"total_trades"`
	EquityCurve     []EquitySample  `json:"equity_curve"`
	Trades          []trade.Closed  `json:"trades"`
}

// Engine replays all strategies' trades against one shared capital pool.
// It is strictly sequential and owns all mutable state
type Engine struct {
	cfg     *config.Config
	pricing *pricing.Engine
	sizer   *sizing.Sizer
	specs   instrument.Specs
	byStrat map[string][]trade.Record
	log     zerolog.Logger
}
