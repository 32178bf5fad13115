// Package config defines, loads and validates the simulation configuration
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DefaultFXRates is the static fallback table used when no FX series is
// loaded for a conversion pair
var DefaultFXRates = map[string]float64{
	"EURUSD": 1.10,
	"GBPUSD": 1.27,
	"USDJPY": 110.0,
}

// ReadConfigFromFile loads and validates a config from a YAML or JSON file
func ReadConfigFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config %v: %w", path, err)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not decode config %v: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DefaultFXRates == nil {
		c.DefaultFXRates = make(map[string]float64, len(DefaultFXRates))
		for pair, rate := range DefaultFXRates {
			c.DefaultFXRates[pair] = rate
		}
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "output"
	}
}

// Validate checks all config settings and returns the first violation
func (c *Config) Validate() error {
	if c.StartingBalance <= 0 {
		return fmt.Errorf("%w, received %v", ErrInvalidBalance, c.StartingBalance)
	}
	if err := c.validateDates(); err != nil {
		return err
	}
	return c.validateStrategySettings()
}

func (c *Config) validateDates() error {
	if c.DateStart == "" || c.DateEnd == "" {
		return fmt.Errorf("%w: date_start and date_end are required", ErrMissingField)
	}
	start, err := time.Parse(DateFormat, c.DateStart)
	if err != nil {
		return fmt.Errorf("%w: invalid date_start %q, use YYYY-MM-DD", ErrMissingField, c.DateStart)
	}
	end, err := time.Parse(DateFormat, c.DateEnd)
	if err != nil {
		return fmt.Errorf("%w: invalid date_end %q, use YYYY-MM-DD", ErrMissingField, c.DateEnd)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: %v >= %v", ErrInvalidDateRange, c.DateStart, c.DateEnd)
	}
	return nil
}

func (c *Config) validateStrategySettings() error {
	var enabled int
	for i := range c.Strategies {
		s := &c.Strategies[i]
		if s.Name == "" {
			return fmt.Errorf("%w: strategy %d has no name", ErrMissingField, i)
		}
		if s.TradesFile == "" {
			return fmt.Errorf("%w: strategy %q has no trades_file", ErrMissingField, s.Name)
		}
		if s.RiskPerTrade <= 0 {
			return fmt.Errorf("%w: strategy %q risk_per_trade %v", ErrInvalidRisk, s.Name, s.RiskPerTrade)
		}
		if s.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return ErrNoStrategies
	}
	return nil
}
