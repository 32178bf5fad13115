package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliosim/config"
	"portfoliosim/trade"
)

func testLoader(t *testing.T, cfg *config.Config) *Loader {
	t.Helper()
	return New(cfg, zerolog.Nop())
}

func baseConfig(dir string) *config.Config {
	return &config.Config{
		StartingBalance: 100000,
		DateStart:       "2024-01-01",
		DateEnd:         "2024-12-31",
		Strategies: []config.StrategySettings{
			{Name: "alpha", TradesFile: "alpha.csv", RiskPerTrade: 1.5},
		},
		Data: config.DataSettings{
			BarsFolder:   dir,
			TradesFolder: dir,
			BarFiles:     map[string]string{"AAA": "aaa.csv"},
		},
	}
}

func TestLoadBars(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	data := "<DATE>\t<TIME>\t<OPEN>\t<HIGH>\t<LOW>\t<CLOSE>\t<TICKVOL>\n" +
		"2023.12.29\t10:00:00\t95\t96\t94\t95\t3\n" +
		"2024.01.02\t10:00:00\t100\t101\t99\t100\t5\n" +
		"2024.01.02\t10:01:00\tn/a\t101\t99\t100\t5\n" +
		"2024.01.03\t10:00:00\t100\t111\t100\t110\t7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aaa.csv"), []byte(data), 0o644))

	l := testLoader(t, baseConfig(dir))
	series, err := l.LoadBars()
	require.NoError(t, err)
	require.Contains(t, series, "AAA")

	// the 2023 bar is outside the range and the unparseable row dropped
	s := series["AAA"]
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), s.First().Time)
	assert.True(t, s.Last().Close.Equal(decimal.NewFromInt(110)))
}

func TestLoadBarsMissingFileSkipped(t *testing.T) {
	t.Parallel()
	l := testLoader(t, baseConfig(t.TempDir()))
	series, err := l.LoadBars()
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestLoadBarsMissingColumn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	data := "<DATE>\t<TIME>\t<OPEN>\t<HIGH>\t<LOW>\n2024.01.02\t10:00:00\t100\t101\t99\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aaa.csv"), []byte(data), 0o644))

	l := testLoader(t, baseConfig(dir))
	_, err := l.LoadBars()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadTrades(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	data := "Ticket,Symbol,Type,Open time,Open price,Stop Loss price level,Size,Close time,Close price,Profit/Loss,MAE ($),MFE ($)\n" +
		"1,AAA,buy,2024.01.02 10:00:00,100,99,0.5,2024.01.04 10:00:00,105,500,-120,600\n" +
		"2,AAA,sell,2024.01.03 10:00:00,110,111,0.5,,,,,\n" +
		"3,AAA,buy,2023.11.01 10:00:00,90,89,0.5,2023.11.03 10:00:00,95,250,,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.csv"), []byte(data), 0o644))

	l := testLoader(t, baseConfig(dir))
	byStrategy, err := l.LoadTrades()
	require.NoError(t, err)
	require.Contains(t, byStrategy, "alpha")

	// the pending order and the out-of-range trade are dropped
	records := byStrategy["alpha"]
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "alpha", rec.StrategyID)
	assert.Equal(t, "1", rec.Ticket)
	assert.Equal(t, trade.Buy, rec.Direction)
	assert.Equal(t, 1.5, rec.RiskPct)
	assert.True(t, rec.OpenPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, rec.StopPrice.Equal(decimal.NewFromInt(99)))
	assert.True(t, rec.OriginalPNL.Equal(decimal.NewFromInt(500)))
	require.True(t, rec.OriginalMAE.Valid)
	assert.Equal(t, -120.0, rec.OriginalMAE.Float64)
	require.True(t, rec.OriginalMFE.Valid)
	assert.Equal(t, 600.0, rec.OriginalMFE.Float64)
}

func TestLoadTradesDisabledStrategySkipped(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := baseConfig(dir)
	disabled := false
	cfg.Strategies[0].Enabled = &disabled

	l := testLoader(t, cfg)
	byStrategy, err := l.LoadTrades()
	require.NoError(t, err)
	assert.Empty(t, byStrategy)
}

func TestLoadTradesInvalidDirection(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	data := "Ticket,Symbol,Type,Open time,Open price,Close time,Close price\n" +
		"1,AAA,hold,2024.01.02 10:00:00,100,2024.01.04 10:00:00,105\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.csv"), []byte(data), 0o644))

	l := testLoader(t, baseConfig(dir))
	_, err := l.LoadTrades()
	require.Error(t, err)
	assert.ErrorIs(t, err, trade.ErrInvalidDirection)
}

func TestParseTime(t *testing.T) {
	t.Parallel()
	for _, input := range []string{
		"2024.01.02 10:00:00",
		"2024-01-02 10:00:00",
		"2024/01/02 10:00:00",
	} {
		ts, err := parseTime(input)
		require.NoError(t, err, input)
		assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), ts)
	}

	ts, err := parseTime("2024.01.02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ts)

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}
