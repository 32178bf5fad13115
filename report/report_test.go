package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null"

	"portfoliosim/attribution"
	"portfoliosim/engine"
	"portfoliosim/statistics"
	"portfoliosim/trade"
)

func testResult() *engine.Result {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	trades := []trade.Closed{
		{
			StrategyID:  "alpha",
			Ticket:      "1",
			Symbol:      "AAA",
			Direction:   trade.Buy,
			OpenTime:    day(2),
			CloseTime:   day(4),
			OpenPrice:   decimal.NewFromInt(100),
			ClosePrice:  decimal.NewFromInt(105),
			StopPrice:   decimal.NewFromInt(99),
			SizedLots:   decimal.NewFromInt(1000),
			RealizedPNL: decimal.NewFromInt(5000),
			EntryEquity: decimal.NewFromInt(100000),
			ExitEquity:  decimal.NewFromInt(105000),
			RiskPct:     null.Float64From(1),
		},
	}
	return &engine.Result{
		RunID:           "test-run",
		StartingBalance: decimal.NewFromInt(100000),
		FinalEquity:     decimal.NewFromInt(105000),
		TotalTrades:     1,
		EquityCurve: []engine.EquitySample{
			{Time: day(1), Equity: decimal.NewFromInt(100000), Cash: decimal.NewFromInt(100000)},
			{Time: day(4), Equity: decimal.NewFromInt(105000), Cash: decimal.NewFromInt(105000)},
		},
		Trades: trades,
	}
}

func TestWriteAll(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	result := testResult()
	metrics := statistics.Calculate(result)
	reports := attribution.Analyze(result.Trades)

	w := New(dir, zerolog.Nop())
	htmlPath, err := w.WriteAll(result, metrics, reports)
	require.NoError(t, err)

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Portfolio Equity")
	assert.Contains(t, string(html), "Drawdown")

	f, err := os.Open(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "strategy", rows[0][0])
	assert.Equal(t, "alpha", rows[1][0])
	assert.Equal(t, "5000.00", rows[1][10])
	assert.Equal(t, "false", rows[1][15])

	metricsData, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)
	assert.Contains(t, string(metricsData), `"total_return_pct": 5`)

	attrData, err := os.ReadFile(filepath.Join(dir, "attribution.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(attrData)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "alpha,1,5000.00"))
}
