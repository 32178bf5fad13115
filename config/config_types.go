package config

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"portfoliosim/instrument"
)

var (
	// ErrInvalidBalance is returned for a non-positive starting balance
	ErrInvalidBalance = errors.New("starting balance must be positive")
	// ErrInvalidDateRange is returned when the start date is not before the end date
	ErrInvalidDateRange = errors.New("start date must be before end date")
	// ErrNoStrategies is returned when no strategy is configured
	ErrNoStrategies = errors.New("no strategies configured")
	// ErrInvalidRisk is returned for a missing or non-positive risk percentage
	ErrInvalidRisk = errors.New("risk per trade must be positive")
	// ErrMissingField is returned for other absent required settings
	ErrMissingField = errors.New("missing required config field")
)

// DateFormat is the layout accepted for date_start/date_end
const DateFormat = "2006-01-02"

// StrategySettings describes one independently backtested strategy whose
// trade log participates in the replay
type StrategySettings struct {
	Name         string  `mapstructure:"name" json:"name"`
	TradesFile   string  `mapstructure:"trades_file" json:"trades_file"`
	RiskPerTrade float64 `mapstructure:"risk_per_trade" json:"risk_per_trade"`
	Enabled      *bool   `mapstructure:"enabled" json:"enabled"`
}

// IsEnabled defaults to true when the flag is omitted
func (s *StrategySettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// DataSettings locates the input files consumed by the loader
type DataSettings struct {
	BarsFolder   string            `mapstructure:"bars_folder" json:"bars_folder"`
	TradesFolder string            `mapstructure:"trades_folder" json:"trades_folder"`
	BarFiles     map[string]string `mapstructure:"bar_files" json:"bar_files"`
}

// OutputSettings controls report and journal emission
type OutputSettings struct {
	Directory         string `mapstructure:"directory" json:"directory"`
	GenerateBarEquity bool   `mapstructure:"generate_bar_equity" json:"generate_bar_equity"`
	JournalPath       string `mapstructure:"journal_path" json:"journal_path"`
}

// InstrumentSpec mirrors instrument.Spec with plain numeric fields so it
// can be decoded straight from a config file
type InstrumentSpec struct {
	ContractSize float64 `mapstructure:"contract_size" json:"contract_size"`
	PointValue   float64 `mapstructure:"point_value" json:"point_value"`
	Currency     string  `mapstructure:"currency" json:"currency"`
	Type         string  `mapstructure:"type" json:"type"`
}

// Config is the full simulation configuration
type Config struct {
	StartingBalance      float64                   `mapstructure:"starting_balance" json:"starting_balance"`
	DateStart            string                    `mapstructure:"date_start" json:"date_start"`
	DateEnd              string                    `mapstructure:"date_end" json:"date_end"`
	Strategies           []StrategySettings        `mapstructure:"strategies" json:"strategies"`
	InstrumentSpecs      map[string]InstrumentSpec `mapstructure:"instrument_specs" json:"instrument_specs"`
	DefaultFXRates       map[string]float64        `mapstructure:"default_fx_rates" json:"default_fx_rates"`
	ConservativeDrawdown bool                      `mapstructure:"conservative_dd_mode" json:"conservative_dd_mode"`
	Data                 DataSettings              `mapstructure:"data" json:"data"`
	Output               OutputSettings            `mapstructure:"output" json:"output"`
}

// Specs merges configured instrument specifications over the builtin set
func (c *Config) Specs() instrument.Specs {
	specs := instrument.BuiltinSpecs()
	for symbol, s := range c.InstrumentSpecs {
		specs[symbol] = instrument.Spec{
			ContractSize: decimal.NewFromFloat(s.ContractSize),
			PointValue:   decimal.NewFromFloat(s.PointValue),
			Currency:     s.Currency,
			Type:         s.Type,
		}
	}
	return specs
}

// Balance returns the starting balance as a decimal
func (c *Config) Balance() decimal.Decimal {
	return decimal.NewFromFloat(c.StartingBalance)
}

// Start returns the parsed simulation start date
func (c *Config) Start() time.Time {
	t, _ := time.Parse(DateFormat, c.DateStart)
	return t
}

// End returns the parsed simulation end date
func (c *Config) End() time.Time {
	t, _ := time.Parse(DateFormat, c.DateEnd)
	return t
}

// FXRates returns the default FX table as decimals for the pricing engine
func (c *Config) FXRates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.DefaultFXRates))
	for pair, rate := range c.DefaultFXRates {
		out[pair] = decimal.NewFromFloat(rate)
	}
	return out
}
