package math

import (
	"math"
	"sort"
)

// TradingDaysPerYear is the conventional annualisation factor for daily returns
const TradingDaysPerYear = 252

// ArithmeticAverage is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for x := range values {
		sum += values[x]
	}
	return sum / float64(len(values))
}

// Median returns the middle value of a sorted copy of values
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// SampleStandardDeviation measures the dispersion of a dataset relative
// to its mean using Bessel's correction
func SampleStandardDeviation(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	mean := ArithmeticAverage(vals)
	var combined float64
	for i := range vals {
		combined += math.Pow(vals[i]-mean, 2)
	}
	return math.Sqrt(combined / (float64(len(vals)) - 1))
}

// RoundFloat rounds your floating point number to the desired decimal place
func RoundFloat(x float64, prec int) float64 {
	pow := math.Pow(10, float64(prec))
	return math.Round(x*pow) / pow
}

// CalculateCompoundAnnualGrowthRate calculates CAGR as a percentage over
// the elapsed number of years. Returns 0 when years is not positive
func CalculateCompoundAnnualGrowthRate(openValue, closeValue, years float64) float64 {
	if years <= 0 || openValue <= 0 {
		return 0
	}
	return (math.Pow(closeValue/openValue, 1/years) - 1) * 100
}

// CalculateSharpeRatio returns the annualised Sharpe ratio of a series of
// periodic returns assuming a zero risk-free rate. Returns 0 when the
// standard deviation is 0
func CalculateSharpeRatio(returns []float64, periodsPerYear float64) float64 {
	std := SampleStandardDeviation(returns)
	if std == 0 {
		return 0
	}
	return ArithmeticAverage(returns) / std * math.Sqrt(periodsPerYear)
}

// CalculateSortinoRatio is the Sharpe ratio with the denominator replaced
// by the standard deviation of only the negative periodic returns
func CalculateSortinoRatio(returns []float64, periodsPerYear float64) float64 {
	var downside []float64
	for i := range returns {
		if returns[i] < 0 {
			downside = append(downside, returns[i])
		}
	}
	std := SampleStandardDeviation(downside)
	if std == 0 {
		return 0
	}
	return ArithmeticAverage(returns) / std * math.Sqrt(periodsPerYear)
}

// CalculateCalmarRatio is the compounded annual growth rate versus the
// absolute maximum drawdown percentage. Returns 0 when there is no drawdown
func CalculateCalmarRatio(cagr, maxDrawdownPct float64) float64 {
	dd := math.Abs(maxDrawdownPct)
	if dd == 0 {
		return 0
	}
	return cagr / dd
}
