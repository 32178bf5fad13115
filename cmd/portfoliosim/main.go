// portfoliosim replays independently backtested strategy trade logs
// against one shared capital pool and reports the combined portfolio's
// equity curve, performance metrics and per-strategy attribution
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"portfoliosim/attribution"
	"portfoliosim/config"
	"portfoliosim/engine"
	"portfoliosim/loader"
	"portfoliosim/pricing"
	"portfoliosim/report"
	"portfoliosim/statistics"
	"portfoliosim/store"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "portfoliosim",
		Version: version,
		Usage:   "multi-strategy trade-log portfolio replay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the simulation config file",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "override the report output directory",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "override the sqlite journal path",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "portfoliosim: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := newLogger(c.Bool("verbose"))

	cfg, err := config.ReadConfigFromFile(c.String("config"))
	if err != nil {
		return err
	}
	if dir := c.String("output"); dir != "" {
		cfg.Output.Directory = dir
	}
	if db := c.String("db"); db != "" {
		cfg.Output.JournalPath = db
	}

	l := loader.New(cfg, log)
	series, err := l.LoadBars()
	if err != nil {
		return err
	}
	byStrategy, err := l.LoadTrades()
	if err != nil {
		return err
	}

	pe := pricing.NewEngine(series, cfg.FXRates())
	e, err := engine.New(cfg, pe, byStrategy, log)
	if err != nil {
		return err
	}
	result, err := e.Run()
	if err != nil {
		return err
	}

	metrics := statistics.Calculate(result)
	reports := attribution.Analyze(result.Trades)

	htmlPath, err := report.New(cfg.Output.Directory, log).WriteAll(result, metrics, reports)
	if err != nil {
		return err
	}

	if cfg.Output.JournalPath != "" {
		j, err := store.New(cfg.Output.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		if err = j.SaveRun(context.Background(), result); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Output.JournalPath).Msg("run journaled")
	}

	log.Info().
		Str("run_id", result.RunID).
		Float64("total_return_pct", metrics.TotalReturnPct).
		Float64("max_drawdown_pct", metrics.MaxDrawdownPct).
		Float64("sharpe", metrics.SharpeRatio).
		Int("trades", metrics.TotalTrades).
		Str("report", htmlPath).
		Msg("simulation finished")
	return nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
