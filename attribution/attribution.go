// Package attribution decomposes the portfolio's realized P&L by the
// strategy that originated each trade
package attribution

import (
	"sort"

	"github.com/shopspring/decimal"

	"portfoliosim/trade"
)

var oneHundred = decimal.NewFromInt(100)

// StrategyReport holds the trade-statistics subset for one strategy's
// partition of the closed-trade log
type StrategyReport struct {
	StrategyID      string          `json:"strategy_id"`
	TotalTrades     int             `json:"total_trades"`
	TotalPNL        decimal.Decimal `json:"total_pnl"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	WinRate         float64         `json:"win_rate"`
	AvgWin          decimal.Decimal `json:"avg_win"`
	AvgLoss         decimal.Decimal `json:"avg_loss"`
	LargestWin      decimal.Decimal `json:"largest_win"`
	LargestLoss     decimal.Decimal `json:"largest_loss"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	GrossLoss       decimal.Decimal `json:"gross_loss"`
	ProfitFactor    decimal.Decimal `json:"profit_factor"`
	Expectancy      decimal.Decimal `json:"expectancy"`
	ContributionPct decimal.Decimal `json:"contribution_pct"`
}

// Analyze partitions the closed-trade log by strategy and recomputes the
// per-strategy statistics. Contribution percentages are left zero when
// the portfolio's total P&L is zero
func Analyze(trades []trade.Closed) map[string]StrategyReport {
	reports := make(map[string]StrategyReport)
	if len(trades) == 0 {
		return reports
	}

	byStrategy := make(map[string][]trade.Closed)
	for i := range trades {
		id := trades[i].StrategyID
		byStrategy[id] = append(byStrategy[id], trades[i])
	}

	portfolioPNL := decimal.Zero
	for i := range trades {
		portfolioPNL = portfolioPNL.Add(trades[i].RealizedPNL)
	}

	for id := range byStrategy {
		r := analyzeStrategy(id, byStrategy[id])
		if !portfolioPNL.IsZero() {
			r.ContributionPct = r.TotalPNL.Div(portfolioPNL).Mul(oneHundred)
		}
		reports[id] = r
	}
	return reports
}

// StrategyIDs returns the report keys in deterministic order
func StrategyIDs(reports map[string]StrategyReport) []string {
	ids := make([]string, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func analyzeStrategy(id string, trades []trade.Closed) StrategyReport {
	r := StrategyReport{
		StrategyID:  id,
		TotalTrades: len(trades),
	}
	for i := range trades {
		pnl := trades[i].RealizedPNL
		r.TotalPNL = r.TotalPNL.Add(pnl)
		switch {
		case pnl.IsPositive():
			r.WinningTrades++
			r.GrossProfit = r.GrossProfit.Add(pnl)
			if pnl.GreaterThan(r.LargestWin) {
				r.LargestWin = pnl
			}
		case pnl.IsNegative():
			r.LosingTrades++
			r.GrossLoss = r.GrossLoss.Add(pnl.Abs())
			if pnl.LessThan(r.LargestLoss) {
				r.LargestLoss = pnl
			}
		}
	}

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	if r.WinningTrades > 0 {
		r.AvgWin = r.GrossProfit.Div(decimal.NewFromInt(int64(r.WinningTrades)))
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = r.GrossLoss.Neg().Div(decimal.NewFromInt(int64(r.LosingTrades)))
	}
	if r.GrossLoss.IsPositive() {
		r.ProfitFactor = r.GrossProfit.Div(r.GrossLoss)
	}
	r.Expectancy = r.TotalPNL.Div(decimal.NewFromInt(int64(r.TotalTrades)))
	return r
}
