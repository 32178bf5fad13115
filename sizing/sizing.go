// Package sizing converts risk percentages into position sizes and
// computes realized or floating P&L for sized positions
package sizing

import (
	"time"

	"github.com/shopspring/decimal"

	"portfoliosim/common"
	"portfoliosim/instrument"
	"portfoliosim/pricing"
	"portfoliosim/trade"
)

var oneHundred = decimal.NewFromInt(100)

// Sizer sizes positions from live equity and prices their P&L in USD
type Sizer struct {
	pricing *pricing.Engine
}

// New returns a Sizer backed by the given pricing engine
func New(p *pricing.Engine) (*Sizer, error) {
	if p == nil {
		return nil, common.ErrNilArguments
	}
	return &Sizer{pricing: p}, nil
}

// Size returns the position size in lots for risking riskPct percent of
// equity between entry and stop. A zero stop distance or zero
// risk-per-lot yields 0 lots; degenerate stops are replayed with zero
// economic effect rather than raising an error
func (s *Sizer) Size(equity decimal.Decimal, riskPct float64, spec instrument.Spec, entryPrice, stopPrice decimal.Decimal) decimal.Decimal {
	riskAmount := equity.Mul(decimal.NewFromFloat(riskPct)).Div(oneHundred)
	stopDistance := entryPrice.Sub(stopPrice).Abs()
	if stopDistance.IsZero() {
		return decimal.Zero
	}
	riskPerLot := stopDistance.Mul(spec.ContractSize).Mul(spec.PointValue)
	if riskPerLot.IsZero() {
		return decimal.Zero
	}
	// round to 0.1 lot
	return riskAmount.Div(riskPerLot).Round(1)
}

// PNL returns the USD profit or loss of moving lots from entryPrice to
// exitPrice. The timestamp selects the FX rate for non-USD instruments
func (s *Sizer) PNL(direction trade.Direction, spec instrument.Spec, entryPrice, exitPrice, lots decimal.Decimal, ts time.Time) (decimal.Decimal, error) {
	var priceDiff decimal.Decimal
	if direction == trade.Buy {
		priceDiff = exitPrice.Sub(entryPrice)
	} else {
		priceDiff = entryPrice.Sub(exitPrice)
	}
	pnl := priceDiff.Mul(lots).Mul(spec.ContractSize).Mul(spec.PointValue)
	if spec.Currency == "USD" {
		return pnl, nil
	}
	return s.pricing.ConvertToUSD(pnl, spec.Currency, ts)
}
