package statistics

import "time"

// DrawdownPeriod is one contiguous run of negative drawdown in a daily
// equity series. Indexes refer to the resampled daily series. An
// unterminated run at the end of the series is still reported
type DrawdownPeriod struct {
	StartIndex       int     `json:"start_index"`
	EndIndex         int     `json:"end_index"`
	Duration         int     `json:"duration"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	MaxDrawdownIndex int     `json:"max_drawdown_index"`
}

// Metrics is the full performance summary of one simulation run. All
// percentage fields are expressed as percentages, not fractions
type Metrics struct {
	StartingBalance float64   `json:"starting_balance"`
	FinalEquity     float64   `json:"final_equity"`
	NetProfit       float64   `json:"net_profit"`
	TotalReturnPct  float64   `json:"total_return_pct"`
	CAGR            float64   `json:"cagr"`
	Years           float64   `json:"years"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`

	AvgDailyReturn   float64 `json:"avg_daily_return"`
	AvgMonthlyReturn float64 `json:"avg_monthly_return"`
	StdDailyReturn   float64 `json:"std_daily_return"`
	StdMonthlyReturn float64 `json:"std_monthly_return"`
	BestDay          float64 `json:"best_day"`
	WorstDay         float64 `json:"worst_day"`
	BestMonth        float64 `json:"best_month"`
	WorstMonth       float64 `json:"worst_month"`
	PositiveDays     int     `json:"positive_days"`
	NegativeDays     int     `json:"negative_days"`
	PositiveMonths   int     `json:"positive_months"`
	NegativeMonths   int     `json:"negative_months"`

	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	LongestDrawdownDays int     `json:"longest_dd_days"`
	AvgDrawdownDuration float64 `json:"avg_dd_duration"`
	AvgDrawdownDepth    float64 `json:"avg_dd_depth"`
	NumDrawdownPeriods  int     `json:"num_dd_periods"`
	AnnualVolatility    float64 `json:"annual_volatility"`
	RecoveryFactor      float64 `json:"recovery_factor"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"`
	ProfitFactor  float64 `json:"profit_factor"`
	Expectancy    float64 `json:"expectancy"`
	MedianTrade   float64 `json:"median_trade"`

	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	CalmarRatio  float64 `json:"calmar_ratio"`
}
