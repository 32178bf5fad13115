// Package statistics aggregates a simulation result into return, risk
// and risk-adjusted performance metrics. Everything here is pure: the
// input result is never mutated and the same input always produces the
// same output
package statistics

import (
	"math"

	gctmath "portfoliosim/common/math"
	"portfoliosim/engine"
)

// Calculate produces the full metrics bundle for a simulation result.
// Empty inputs yield zero-valued statistics rather than an error
func Calculate(result *engine.Result) *Metrics {
	m := &Metrics{}
	if result == nil || len(result.EquityCurve) == 0 {
		return m
	}

	m.StartingBalance = result.StartingBalance.InexactFloat64()
	m.FinalEquity = result.FinalEquity.InexactFloat64()
	m.NetProfit = m.FinalEquity - m.StartingBalance
	if m.StartingBalance != 0 {
		m.TotalReturnPct = m.NetProfit / m.StartingBalance * 100
	}

	m.StartDate = result.EquityCurve[0].Time
	m.EndDate = result.EquityCurve[len(result.EquityCurve)-1].Time
	m.Years = m.EndDate.Sub(m.StartDate).Hours() / 24 / 365.25
	m.CAGR = gctmath.CalculateCompoundAnnualGrowthRate(m.StartingBalance, m.FinalEquity, m.Years)

	daily := resample(result.EquityCurve, "2006-01-02")
	monthly := resample(result.EquityCurve, "2006-01")
	dailyReturns := percentChange(daily)
	monthlyReturns := percentChange(monthly)

	m.returnsMetrics(dailyReturns, monthlyReturns)
	m.riskMetrics(daily, dailyReturns)
	m.tradeMetrics(result)
	m.ratioMetrics(dailyReturns)
	return m
}

func (m *Metrics) returnsMetrics(dailyReturns, monthlyReturns []float64) {
	m.AvgDailyReturn = gctmath.ArithmeticAverage(dailyReturns) * 100
	m.AvgMonthlyReturn = gctmath.ArithmeticAverage(monthlyReturns) * 100
	m.StdDailyReturn = gctmath.SampleStandardDeviation(dailyReturns) * 100
	m.StdMonthlyReturn = gctmath.SampleStandardDeviation(monthlyReturns) * 100
	m.BestDay = maxOf(dailyReturns) * 100
	m.WorstDay = minOf(dailyReturns) * 100
	m.BestMonth = maxOf(monthlyReturns) * 100
	m.WorstMonth = minOf(monthlyReturns) * 100
	m.PositiveDays, m.NegativeDays = countSigns(dailyReturns)
	m.PositiveMonths, m.NegativeMonths = countSigns(monthlyReturns)
}

func (m *Metrics) riskMetrics(daily, dailyReturns []float64) {
	dd := DrawdownSeries(daily)
	m.MaxDrawdownPct = minOf(dd)
	m.AnnualVolatility = gctmath.SampleStandardDeviation(dailyReturns) * math.Sqrt(gctmath.TradingDaysPerYear) * 100

	periods := FindDrawdownPeriods(dd)
	m.NumDrawdownPeriods = len(periods)
	if len(periods) == 0 {
		return
	}
	var durations, depths []float64
	for i := range periods {
		if periods[i].Duration > m.LongestDrawdownDays {
			m.LongestDrawdownDays = periods[i].Duration
		}
		durations = append(durations, float64(periods[i].Duration))
		depths = append(depths, math.Abs(periods[i].MaxDrawdown))
	}
	m.AvgDrawdownDuration = gctmath.ArithmeticAverage(durations)
	m.AvgDrawdownDepth = gctmath.ArithmeticAverage(depths)

	// max drawdown in dollars is taken against the starting balance
	maxDDDollars := math.Abs(m.MaxDrawdownPct / 100 * m.StartingBalance)
	if maxDDDollars > 0 {
		m.RecoveryFactor = m.NetProfit / maxDDDollars
	}
}

func (m *Metrics) tradeMetrics(result *engine.Result) {
	m.TotalTrades = len(result.Trades)
	if m.TotalTrades == 0 {
		return
	}
	var pnls, wins, losses []float64
	for i := range result.Trades {
		pnl := result.Trades[i].RealizedPNL.InexactFloat64()
		pnls = append(pnls, pnl)
		switch {
		case pnl > 0:
			wins = append(wins, pnl)
		case pnl < 0:
			losses = append(losses, pnl)
		}
	}

	m.WinningTrades = len(wins)
	m.LosingTrades = len(losses)
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	m.AvgWin = gctmath.ArithmeticAverage(wins)
	m.AvgLoss = gctmath.ArithmeticAverage(losses)
	m.LargestWin = maxOf(wins)
	m.LargestLoss = minOf(losses)
	for i := range wins {
		m.GrossProfit += wins[i]
	}
	for i := range losses {
		m.GrossLoss += math.Abs(losses[i])
	}
	if m.GrossLoss > 0 {
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	}
	m.Expectancy = gctmath.ArithmeticAverage(pnls)
	m.MedianTrade = gctmath.Median(pnls)
}

func (m *Metrics) ratioMetrics(dailyReturns []float64) {
	m.SharpeRatio = gctmath.CalculateSharpeRatio(dailyReturns, gctmath.TradingDaysPerYear)
	m.SortinoRatio = gctmath.CalculateSortinoRatio(dailyReturns, gctmath.TradingDaysPerYear)
	m.CalmarRatio = gctmath.CalculateCalmarRatio(m.CAGR, m.MaxDrawdownPct)
}

// resample reduces the equity curve to the last sample of each calendar
// period, where the period is defined by a time layout such as
// "2006-01-02" for daily or "2006-01" for monthly buckets
func resample(curve []engine.EquitySample, layout string) []float64 {
	var out []float64
	var prevKey string
	for i := range curve {
		key := curve[i].Time.UTC().Format(layout)
		equity := curve[i].Equity.InexactFloat64()
		if key == prevKey && len(out) > 0 {
			out[len(out)-1] = equity
			continue
		}
		out = append(out, equity)
		prevKey = key
	}
	return out
}

// percentChange returns the period-over-period fractional change of a
// series, one element shorter than the input
func percentChange(values []float64) []float64 {
	var out []float64
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, (values[i]-values[i-1])/values[i-1])
	}
	return out
}

// DrawdownSeries returns the percentage decline of each equity value from
// the running maximum. Values are always <= 0
func DrawdownSeries(equity []float64) []float64 {
	out := make([]float64, len(equity))
	var runningMax float64
	for i := range equity {
		if equity[i] > runningMax {
			runningMax = equity[i]
		}
		if runningMax != 0 {
			out[i] = (equity[i] - runningMax) / runningMax * 100
		}
	}
	return out
}

// FindDrawdownPeriods segments a drawdown series into contiguous runs of
// negative drawdown. A run still active at the end of the series is
// included as an unterminated period
func FindDrawdownPeriods(dd []float64) []DrawdownPeriod {
	var periods []DrawdownPeriod
	inDrawdown := false
	var start int
	for i := range dd {
		switch {
		case dd[i] < 0 && !inDrawdown:
			inDrawdown = true
			start = i
		case dd[i] >= 0 && inDrawdown:
			inDrawdown = false
			periods = append(periods, newPeriod(dd, start, i))
		}
	}
	if inDrawdown {
		periods = append(periods, newPeriod(dd, start, len(dd)))
	}
	return periods
}

// newPeriod builds the period covering dd[start:end)
func newPeriod(dd []float64, start, end int) DrawdownPeriod {
	p := DrawdownPeriod{
		StartIndex:       start,
		EndIndex:         end - 1,
		Duration:         end - start,
		MaxDrawdown:      dd[start],
		MaxDrawdownIndex: start,
	}
	for i := start + 1; i < end; i++ {
		if dd[i] < p.MaxDrawdown {
			p.MaxDrawdown = dd[i]
			p.MaxDrawdownIndex = i
		}
	}
	return p
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	out := values[0]
	for i := range values {
		if values[i] > out {
			out = values[i]
		}
	}
	return out
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	out := values[0]
	for i := range values {
		if values[i] < out {
			out = values[i]
		}
	}
	return out
}

func countSigns(values []float64) (positive, negative int) {
	for i := range values {
		switch {
		case values[i] > 0:
			positive++
		case values[i] < 0:
			negative++
		}
	}
	return positive, negative
}
