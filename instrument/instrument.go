// Package instrument holds static contract specifications used to convert
// price moves into currency amounts
package instrument

import (
	"github.com/shopspring/decimal"
)

// Spec defines the static properties of a tradeable instrument
type Spec struct {
	ContractSize decimal.Decimal `json:"contract_size"`
	PointValue   decimal.Decimal `json:"point_value"`
	Currency     string          `json:"currency"`
	Type         string          `json:"type"`
}

// Specs maps a symbol to its contract specification
type Specs map[string]Spec

// DefaultSpec is used for symbols with no configured specification
func DefaultSpec() Spec {
	return Spec{
		ContractSize: decimal.NewFromInt(1),
		PointValue:   decimal.NewFromInt(1),
		Currency:     "USD",
		Type:         "unknown",
	}
}

// Lookup returns the specification for a symbol, falling back to the
// default specification for unknown symbols
func (s Specs) Lookup(symbol string) Spec {
	if spec, ok := s[symbol]; ok {
		return spec
	}
	return DefaultSpec()
}

// BuiltinSpecs returns the specifications shipped with the application
func BuiltinSpecs() Specs {
	return Specs{
		"DE40": {
			ContractSize: decimal.NewFromInt(1),
			PointValue:   decimal.NewFromInt(1),
			Currency:     "EUR",
			Type:         "index",
		},
		"XAUUSD": {
			ContractSize: decimal.NewFromInt(100),
			PointValue:   decimal.NewFromInt(1),
			Currency:     "USD",
			Type:         "commodity",
		},
		"EURUSD": {
			ContractSize: decimal.NewFromInt(100000),
			PointValue:   decimal.NewFromFloat(0.0001),
			Currency:     "USD",
			Type:         "forex",
		},
		"GBPUSD": {
			ContractSize: decimal.NewFromInt(100000),
			PointValue:   decimal.NewFromFloat(0.0001),
			Currency:     "USD",
			Type:         "forex",
		},
	}
}
