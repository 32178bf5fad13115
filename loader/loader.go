// Package loader reads bar history and strategy trade logs from disk and
// normalizes them into the validated inputs the replay engine consumes.
// Bar files are tab-separated MetaTrader exports; trade logs are CSV
// exports of each strategy's isolated backtest
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"portfoliosim/config"
	"portfoliosim/pricing"
	"portfoliosim/trade"
)

var (
	// ErrMissingColumn is returned when a required column cannot be
	// found under any known header variant
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoData is returned when a file yields no rows inside the
	// configured date range
	ErrNoData = errors.New("no rows in configured date range")
)

// timeFormats are tried in order when parsing bar and trade timestamps
var timeFormats = []string{
	"2006.01.02 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006-01-02",
	time.RFC3339,
}

// Loader resolves configured data files into price series and trade lists
type Loader struct {
	cfg *config.Config
	log zerolog.Logger
}

// New returns a loader for the given configuration
func New(cfg *config.Config, log zerolog.Logger) *Loader {
	return &Loader{cfg: cfg, log: log}
}

// LoadBars reads every configured bar file into a validated price series.
// A missing file is logged and skipped so a partial data set still
// produces a runnable (if degraded) simulation
func (l *Loader) LoadBars() (map[string]*pricing.Series, error) {
	out := make(map[string]*pricing.Series, len(l.cfg.Data.BarFiles))
	for symbol, filename := range l.cfg.Data.BarFiles {
		path := filepath.Join(l.cfg.Data.BarsFolder, filename)
		series, err := l.loadBarFile(symbol, path)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				l.log.Warn().Str("symbol", symbol).Str("path", path).Msg("bar file not found, skipping")
				continue
			}
			return nil, err
		}
		l.log.Info().
			Str("symbol", symbol).
			Int("bars", series.Len()).
			Time("first", series.First().Time).
			Time("last", series.Last().Time).
			Msg("loaded bar history")
		out[symbol] = series
	}
	return out, nil
}

func (l *Loader) loadBarFile(symbol, path string) (*pricing.Series, error) {
	rows, header, err := readDelimited(path, '\t')
	if err != nil {
		return nil, errors.Wrapf(err, "bar file %v", path)
	}

	dateCol, hasDate := header["date"]
	timeCol, hasTime := header["time"]
	dtCol, hasDT := header["datetime"]
	if !hasDT && !(hasDate && hasTime) {
		return nil, errors.Wrapf(ErrMissingColumn, "bar file %v needs date/time or datetime", path)
	}
	ohlc := [4]int{}
	for i, name := range []string{"open", "high", "low", "close"} {
		col, ok := header[name]
		if !ok {
			return nil, errors.Wrapf(ErrMissingColumn, "bar file %v needs %v", path, name)
		}
		ohlc[i] = col
	}

	start, end := l.cfg.Start(), l.cfg.End()
	bars := make([]pricing.Bar, 0, len(rows))
	for _, row := range rows {
		var stamp string
		if hasDT {
			stamp = row[dtCol]
		} else {
			stamp = row[dateCol] + " " + row[timeCol]
		}
		ts, err := parseTime(stamp)
		if err != nil {
			return nil, errors.Wrapf(err, "bar file %v", path)
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		var b pricing.Bar
		b.Time = ts
		fields := [4]*decimal.Decimal{&b.Open, &b.High, &b.Low, &b.Close}
		ok := true
		for i := range fields {
			v, err := decimal.NewFromString(strings.TrimSpace(row[ohlc[i]]))
			if err != nil {
				// mirror of dropping NaN rows upstream
				ok = false
				break
			}
			*fields[i] = v
		}
		if !ok {
			continue
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, errors.Wrapf(ErrNoData, "bar file %v", path)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	series, err := pricing.NewSeries(symbol, bars)
	if err != nil {
		return nil, errors.Wrapf(err, "bar file %v", path)
	}
	return series, nil
}

// LoadTrades reads every enabled strategy's trade log. Rows without a
// close time or close price are pending orders and are dropped; the rest
// are filtered to the configured date range, sorted by open time and
// stamped with the strategy's name and risk setting
func (l *Loader) LoadTrades() (map[string][]trade.Record, error) {
	out := make(map[string][]trade.Record, len(l.cfg.Strategies))
	for i := range l.cfg.Strategies {
		s := &l.cfg.Strategies[i]
		if !s.IsEnabled() {
			continue
		}
		path := filepath.Join(l.cfg.Data.TradesFolder, s.TradesFile)
		records, err := l.loadTradeFile(s, path)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				l.log.Warn().Str("strategy", s.Name).Str("path", path).Msg("trade log not found, skipping")
				continue
			}
			return nil, err
		}
		l.log.Info().Str("strategy", s.Name).Int("trades", len(records)).Msg("loaded trade log")
		out[s.Name] = records
	}
	return out, nil
}

func (l *Loader) loadTradeFile(s *config.StrategySettings, path string) ([]trade.Record, error) {
	rows, header, err := readDelimited(path, ',')
	if err != nil {
		return nil, errors.Wrapf(err, "trade log %v", path)
	}

	required := map[string]int{}
	for _, name := range []string{"ticket", "symbol", "type", "open_time", "open_price", "close_time", "close_price"} {
		col, ok := header[name]
		if !ok {
			return nil, errors.Wrapf(ErrMissingColumn, "trade log %v needs %v", path, name)
		}
		required[name] = col
	}

	start, end := l.cfg.Start(), l.cfg.End()
	var records []trade.Record
	for _, row := range rows {
		// pending orders carry no close information
		if strings.TrimSpace(row[required["close_time"]]) == "" ||
			strings.TrimSpace(row[required["close_price"]]) == "" {
			continue
		}

		rec := trade.Record{
			StrategyID: s.Name,
			Ticket:     strings.TrimSpace(row[required["ticket"]]),
			Symbol:     strings.TrimSpace(row[required["symbol"]]),
			RiskPct:    s.RiskPerTrade,
		}
		rec.Direction, err = trade.ParseDirection(row[required["type"]])
		if err != nil {
			return nil, errors.Wrapf(err, "trade log %v ticket %v", path, rec.Ticket)
		}
		if rec.OpenTime, err = parseTime(row[required["open_time"]]); err != nil {
			return nil, errors.Wrapf(err, "trade log %v ticket %v", path, rec.Ticket)
		}
		if rec.CloseTime, err = parseTime(row[required["close_time"]]); err != nil {
			return nil, errors.Wrapf(err, "trade log %v ticket %v", path, rec.Ticket)
		}
		if rec.OpenTime.Before(start) || rec.CloseTime.After(end) {
			continue
		}
		if rec.OpenPrice, err = decimal.NewFromString(strings.TrimSpace(row[required["open_price"]])); err != nil {
			return nil, errors.Wrapf(err, "trade log %v ticket %v open price", path, rec.Ticket)
		}
		if rec.ClosePrice, err = decimal.NewFromString(strings.TrimSpace(row[required["close_price"]])); err != nil {
			return nil, errors.Wrapf(err, "trade log %v ticket %v close price", path, rec.Ticket)
		}
		rec.StopPrice = optionalDecimal(row, header, "sl_price")
		rec.OriginalSize = optionalDecimal(row, header, "size")
		rec.OriginalPNL = optionalDecimal(row, header, "pnl")
		rec.OriginalMAE = optionalFloat(row, header, "mae")
		rec.OriginalMFE = optionalFloat(row, header, "mfe")
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OpenTime.Before(records[j].OpenTime)
	})
	if err := trade.ValidateAll(records); err != nil {
		return nil, errors.Wrapf(err, "trade log %v", path)
	}
	return records, nil
}

// readDelimited reads a delimited file and returns its data rows plus a
// normalized header-name to column-index map
func readDelimited(path string, comma rune) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.TrimLeadingSpace = true

	headerRow, err := r.Read()
	if err != nil {
		return nil, nil, err
	}
	header := make(map[string]int, len(headerRow))
	for i := range headerRow {
		header[normalizeHeader(headerRow[i])] = i
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

// headerAliases maps export-specific column titles onto canonical names
var headerAliases = map[string]string{
	"open time":               "open_time",
	"close time":              "close_time",
	"open price":              "open_price",
	"close price":             "close_price",
	"stop loss price level":   "sl_price",
	"take profit price level": "tp_price",
	"profit/loss":             "pnl",
	"mae ($)":                 "mae",
	"mfe ($)":                 "mfe",
	"date_time":               "datetime",
	"timestamp":               "datetime",
}

// normalizeHeader lowercases a column title and strips the angle brackets
// of MetaTrader exports, then resolves known aliases
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "<")
	h = strings.TrimSuffix(h, ">")
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range timeFormats {
		if ts, err := time.Parse(format, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.Errorf("unparseable timestamp %q", s)
}

func optionalDecimal(row []string, header map[string]int, name string) decimal.Decimal {
	col, ok := header[name]
	if !ok || strings.TrimSpace(row[col]) == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.TrimSpace(row[col]))
	if err != nil {
		return decimal.Zero
	}
	return v
}

func optionalFloat(row []string, header map[string]int, name string) null.Float64 {
	col, ok := header[name]
	if !ok || strings.TrimSpace(row[col]) == "" {
		return null.Float64{}
	}
	v, err := decimal.NewFromString(strings.TrimSpace(row[col]))
	if err != nil {
		return null.Float64{}
	}
	f, _ := v.Float64()
	return null.Float64From(f)
}
