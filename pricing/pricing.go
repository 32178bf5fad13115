// Package pricing provides time-indexed OHLC lookup with as-of semantics
// and currency conversion against loaded or default FX rates
package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NewSeries validates ordering and OHLC bounds and returns an immutable series
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %v", ErrEmptySeries, symbol)
	}
	for i := range bars {
		if i > 0 && bars[i].Time.Before(bars[i-1].Time) {
			return nil, fmt.Errorf("%w for %v at %v", ErrUnsortedSeries, symbol, bars[i].Time)
		}
		maxOC := decimalMax(bars[i].Open, bars[i].Close)
		minOC := decimalMin(bars[i].Open, bars[i].Close)
		if bars[i].High.LessThan(maxOC) || bars[i].Low.GreaterThan(minOC) {
			return nil, fmt.Errorf("%w for %v at %v", ErrOHLCViolation, symbol, bars[i].Time)
		}
	}
	return &Series{Symbol: symbol, bars: bars}, nil
}

// Len returns the number of bars held
func (s *Series) Len() int {
	return len(s.bars)
}

// First returns the earliest bar
func (s *Series) First() Bar {
	return s.bars[0]
}

// Last returns the latest bar
func (s *Series) Last() Bar {
	return s.bars[len(s.bars)-1]
}

// asOf returns the last bar at or before ts. The second return is false
// when ts precedes the entire series
func (s *Series) asOf(ts time.Time) (Bar, bool) {
	// first index strictly after ts
	idx := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Time.After(ts)
	})
	if idx == 0 {
		return Bar{}, false
	}
	return s.bars[idx-1], true
}

// Between returns the bars with timestamps strictly inside (from, to)
func (s *Series) Between(from, to time.Time) []Bar {
	lo := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Time.After(from)
	})
	hi := sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Time.Before(to)
	})
	if lo >= hi {
		return nil
	}
	return s.bars[lo:hi]
}

// NewEngine returns a pricing engine over validated series and a static
// default FX rate table used when no FX series is loaded
func NewEngine(series map[string]*Series, defaultFXRates map[string]decimal.Decimal) *Engine {
	if series == nil {
		series = make(map[string]*Series)
	}
	if defaultFXRates == nil {
		defaultFXRates = make(map[string]decimal.Decimal)
	}
	return &Engine{
		series:         series,
		defaultFXRates: defaultFXRates,
	}
}

// HasSeries reports whether price data is loaded for a symbol
func (e *Engine) HasSeries(symbol string) bool {
	_, ok := e.series[symbol]
	return ok
}

// Series returns the loaded series for a symbol, or nil
func (e *Engine) Series(symbol string) *Series {
	return e.series[symbol]
}

// BarAt returns the last bar at or before ts. When ts precedes the whole
// series the first bar is returned, which is the ExtrapolateToEarliest
// policy rather than a silent failure
func (e *Engine) BarAt(symbol string, ts time.Time) (Bar, error) {
	s, ok := e.series[symbol]
	if !ok {
		return Bar{}, fmt.Errorf("%w: no series for %v", ErrPriceUnavailable, symbol)
	}
	b, ok := s.asOf(ts)
	if !ok {
		// ExtrapolateToEarliest
		return s.First(), nil
	}
	return b, nil
}

// PriceAt returns a single bar field using BarAt's as-of semantics
func (e *Engine) PriceAt(symbol string, ts time.Time, field Field) (decimal.Decimal, error) {
	b, err := e.BarAt(symbol, ts)
	if err != nil {
		return decimal.Zero, err
	}
	switch field {
	case FieldOpen:
		return b.Open, nil
	case FieldHigh:
		return b.High, nil
	case FieldLow:
		return b.Low, nil
	case FieldClose:
		return b.Close, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidField, field)
	}
}

// FXRate resolves a conversion rate for a currency pair such as EURUSD,
// preferring loaded price data over the static default table
func (e *Engine) FXRate(pair string, ts time.Time) (decimal.Decimal, error) {
	if e.HasSeries(pair) {
		return e.PriceAt(pair, ts, FieldClose)
	}
	if rate, ok := e.defaultFXRates[pair]; ok {
		return rate, nil
	}
	return decimal.Zero, fmt.Errorf("%w: no fx rate for %v", ErrPriceUnavailable, pair)
}

// ConvertToUSD converts an amount denominated in currency to USD at ts
func (e *Engine) ConvertToUSD(amount decimal.Decimal, currency string, ts time.Time) (decimal.Decimal, error) {
	if currency == "USD" {
		return amount, nil
	}
	rate, err := e.FXRate(currency+"USD", ts)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

func decimalMax(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func decimalMin(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
