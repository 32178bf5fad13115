// Package report renders a simulation run into an HTML chart page and
// flat-file exports for downstream analysis
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"portfoliosim/attribution"
	"portfoliosim/common"
	"portfoliosim/engine"
	"portfoliosim/statistics"
)

const timestampLayout = "2006-01-02 15:04:05"

// Writer emits all report artifacts into one output directory
type Writer struct {
	dir string
	log zerolog.Logger
}

// New returns a report writer rooted at dir
func New(dir string, log zerolog.Logger) *Writer {
	return &Writer{dir: dir, log: log}
}

// WriteAll renders the chart page and writes the trade log, metrics and
// attribution exports. Returns the path of the HTML report
func (w *Writer) WriteAll(result *engine.Result, metrics *statistics.Metrics, reports map[string]attribution.StrategyReport) (string, error) {
	if result == nil {
		return "", common.ErrNilResult
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating report directory")
	}

	htmlPath := filepath.Join(w.dir, "report.html")
	if err := w.writeCharts(htmlPath, result, metrics); err != nil {
		return "", err
	}
	if err := w.writeTradeLog(filepath.Join(w.dir, "trades.csv"), result); err != nil {
		return "", err
	}
	if err := w.writeMetrics(filepath.Join(w.dir, "metrics.json"), metrics); err != nil {
		return "", err
	}
	if err := w.writeAttribution(filepath.Join(w.dir, "attribution.csv"), reports); err != nil {
		return "", err
	}
	w.log.Info().Str("dir", w.dir).Msg("report written")
	return htmlPath, nil
}

func (w *Writer) writeCharts(path string, result *engine.Result, metrics *statistics.Metrics) error {
	x := make([]string, len(result.EquityCurve))
	equity := make([]opts.LineData, len(result.EquityCurve))
	values := make([]float64, len(result.EquityCurve))
	for i := range result.EquityCurve {
		x[i] = result.EquityCurve[i].Time.Format(timestampLayout)
		v := result.EquityCurve[i].Equity.InexactFloat64()
		values[i] = v
		equity[i] = opts.LineData{Value: v}
	}

	equityLine := charts.NewLine()
	equityLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  "1200px",
			Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Portfolio Equity",
			Subtitle: fmt.Sprintf("run %v | %v trades | final equity %v",
				result.RunID, result.TotalTrades, common.FmtCurrency(result.FinalEquity.InexactFloat64())),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	equityLine.SetXAxis(x).
		AddSeries("Equity", equity, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: false}))

	dd := statistics.DrawdownSeries(values)
	ddData := make([]opts.LineData, len(dd))
	for i := range dd {
		ddData[i] = opts.LineData{Value: dd[i]}
	}
	ddLine := charts.NewLine()
	ddLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  "1200px",
			Height: "350px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Drawdown",
			Subtitle: "max " + common.FmtPercent(metrics.MaxDrawdownPct),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)
	ddLine.SetXAxis(x).
		AddSeries("Drawdown %", ddData, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: false}))

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(equityLine, ddLine)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating chart page")
	}
	defer f.Close()
	if err = page.Render(f); err != nil {
		return errors.Wrap(err, "rendering chart page")
	}
	return nil
}

func (w *Writer) writeTradeLog(path string, result *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating trade log export")
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{
		"strategy", "ticket", "symbol", "direction", "open_time", "close_time",
		"open_price", "close_price", "stop_price", "sized_lots", "realized_pnl",
		"entry_equity", "exit_equity", "risk_pct", "original_pnl", "forced_close",
	}
	if err = cw.Write(header); err != nil {
		return errors.Wrap(err, "writing trade log export")
	}
	for i := range result.Trades {
		tr := &result.Trades[i]
		row := []string{
			tr.StrategyID,
			tr.Ticket,
			tr.Symbol,
			string(tr.Direction),
			tr.OpenTime.Format(timestampLayout),
			tr.CloseTime.Format(timestampLayout),
			tr.OpenPrice.String(),
			tr.ClosePrice.String(),
			tr.StopPrice.String(),
			tr.SizedLots.String(),
			tr.RealizedPNL.StringFixed(2),
			tr.EntryEquity.StringFixed(2),
			tr.ExitEquity.StringFixed(2),
			nullString(tr.RiskPct.Valid, tr.RiskPct.Float64),
			nullString(tr.OriginalPNL.Valid, tr.OriginalPNL.Float64),
			strconv.FormatBool(tr.ForcedClose),
		}
		if err = cw.Write(row); err != nil {
			return errors.Wrap(err, "writing trade log export")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing trade log export")
}

func (w *Writer) writeMetrics(path string, metrics *statistics.Metrics) error {
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding metrics")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "writing metrics export")
}

func (w *Writer) writeAttribution(path string, reports map[string]attribution.StrategyReport) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating attribution export")
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{
		"strategy", "total_trades", "total_pnl", "winning_trades", "losing_trades",
		"win_rate", "avg_win", "avg_loss", "gross_profit", "gross_loss",
		"profit_factor", "expectancy", "contribution_pct",
	}
	if err = cw.Write(header); err != nil {
		return errors.Wrap(err, "writing attribution export")
	}
	for _, id := range attribution.StrategyIDs(reports) {
		r := reports[id]
		row := []string{
			r.StrategyID,
			strconv.Itoa(r.TotalTrades),
			r.TotalPNL.StringFixed(2),
			strconv.Itoa(r.WinningTrades),
			strconv.Itoa(r.LosingTrades),
			strconv.FormatFloat(r.WinRate, 'f', 2, 64),
			r.AvgWin.StringFixed(2),
			r.AvgLoss.StringFixed(2),
			r.GrossProfit.StringFixed(2),
			r.GrossLoss.StringFixed(2),
			r.ProfitFactor.StringFixed(4),
			r.Expectancy.StringFixed(2),
			r.ContributionPct.StringFixed(2),
		}
		if err = cw.Write(row); err != nil {
			return errors.Wrap(err, "writing attribution export")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing attribution export")
}

func nullString(valid bool, v float64) string {
	if !valid {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
