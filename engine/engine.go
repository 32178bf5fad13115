// Package engine contains the event-driven replay state machine. It merges
// every strategy's trade log into one chronological stream and replays it
// against a single shared capital pool, re-sizing each trade from live
// mark-to-market equity
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"portfoliosim/common"
	"portfoliosim/config"
	"portfoliosim/pricing"
	"portfoliosim/sizing"
	"portfoliosim/trade"
)

// New validates inputs and returns a ready-to-run engine
func New(cfg *config.Config, pe *pricing.Engine, byStrategy map[string][]trade.Record, log zerolog.Logger) (*Engine, error) {
	if cfg == nil || pe == nil {
		return nil, common.ErrNilArguments
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for id := range byStrategy {
		if err := trade.ValidateAll(byStrategy[id]); err != nil {
			return nil, fmt.Errorf("strategy %v: %w", id, err)
		}
	}
	s, err := sizing.New(pe)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		pricing: pe,
		sizer:   s,
		specs:   cfg.Specs(),
		byStrat: byStrategy,
		log:     log,
	}, nil
}

// Run replays the merged trade stream and returns the simulation result.
// Opens and closes are interleaved in one global time order so that a
// trade's sizing sees every other strategy's concurrent unrealized
// exposure. A price lookup failure during normal marking aborts the run;
// only the forced end-of-horizon liquidation tolerates missing prices
func (e *Engine) Run() (*Result, error) {
	merged := e.mergeTrades()
	if len(merged) == 0 {
		return nil, ErrNoTrades
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	end := e.cfg.End()
	e.log.Info().
		Int("trades", len(merged)).
		Str("run_id", id.String()).
		Time("date_start", e.cfg.Start()).
		Time("date_end", end).
		Msg("replaying merged trade stream")

	state := &portfolioState{
		cash: e.cfg.Balance(),
		open: make(map[string]*openPosition),
	}
	state.curve = append(state.curve, EquitySample{
		Time:   e.cfg.Start(),
		Equity: e.cfg.Balance(),
		Cash:   e.cfg.Balance(),
	})
	lastTS := e.cfg.Start()

	for i := range merged {
		// positions whose close time has been reached are realized
		// before the next open so freed cash and gone exposure are
		// reflected in its sizing
		if err = e.drainClosesUntil(state, merged[i].OpenTime, &lastTS); err != nil {
			return nil, err
		}
		if err = e.openTrade(state, merged[i], &lastTS); err != nil {
			return nil, err
		}
	}
	if err = e.drainClosesUntil(state, end, &lastTS); err != nil {
		return nil, err
	}

	e.closeAllPositions(state, end)

	final := state.curve[len(state.curve)-1].Equity
	e.log.Info().
		Int("closed_trades", len(state.trades)).
		Int("equity_points", len(state.curve)).
		Str("final_equity", final.StringFixed(2)).
		Msg("simulation complete")

	return &Result{
		RunID:           id.String(),
		StartedAt:       started,
		FinishedAt:      time.Now(),
		StartingBalance: e.cfg.Balance(),
		FinalEquity:     final,
		TotalTrades:     len(state.trades),
		EquityCurve:     state.curve,
		Trades:          state.trades,
	}, nil
}

// mergeTrades flattens every strategy's trade list into one stream
// ordered by open time. The sort is stable so ties keep the per-strategy
// relative order
func (e *Engine) mergeTrades() []trade.Record {
	ids := make([]string, 0, len(e.byStrat))
	for id := range e.byStrat {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var merged []trade.Record
	for _, id := range ids {
		merged = append(merged, e.byStrat[id]...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].OpenTime.Before(merged[j].OpenTime)
	})
	return merged
}

// drainClosesUntil realizes every open position whose close time is at or
// before ts, earliest first
func (e *Engine) drainClosesUntil(state *portfolioState, ts time.Time, lastTS *time.Time) error {
	for {
		pos := e.earliestClose(state)
		if pos == nil || pos.record.CloseTime.After(ts) {
			return nil
		}
		if err := e.closePosition(state, pos, lastTS); err != nil {
			return err
		}
	}
}

// earliestClose returns the open position with the earliest close time,
// preferring insertion order on ties
func (e *Engine) earliestClose(state *portfolioState) *openPosition {
	var found *openPosition
	for _, id := range state.openOrder {
		pos := state.open[id]
		if found == nil || pos.record.CloseTime.Before(found.record.CloseTime) {
			found = pos
		}
	}
	return found
}

func (e *Engine) openTrade(state *portfolioState, rec trade.Record, lastTS *time.Time) error {
	if err := e.emitBarSamples(state, *lastTS, rec.OpenTime); err != nil {
		return err
	}

	equity, err := e.currentEquity(state, rec.OpenTime)
	if err != nil {
		return err
	}
	spec := e.specs.Lookup(rec.Symbol)
	lots := e.sizer.Size(equity, rec.RiskPct, spec, rec.OpenPrice, rec.StopPrice)
	if lots.IsZero() {
		e.log.Warn().
			Str("strategy", rec.StrategyID).
			Str("ticket", rec.Ticket).
			Msg("degenerate stop distance, trade sized to zero lots")
	}

	id := positionID(rec.StrategyID, rec.Ticket)
	if _, ok := state.open[id]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicatePosition, id)
	}
	state.open[id] = &openPosition{
		id:          id,
		record:      rec,
		lots:        lots,
		entryEquity: equity,
	}
	state.openOrder = append(state.openOrder, id)
	*lastTS = rec.OpenTime
	return nil
}

func (e *Engine) closePosition(state *portfolioState, pos *openPosition, lastTS *time.Time) error {
	rec := pos.record
	if err := e.emitBarSamples(state, *lastTS, rec.CloseTime); err != nil {
		return err
	}

	// exit equity is marked with the position still open and cash not
	// yet credited, mirroring how entry equity was taken at open
	exitEquity, err := e.currentEquity(state, rec.CloseTime)
	if err != nil {
		return err
	}
	spec := e.specs.Lookup(rec.Symbol)
	pnl, err := e.sizer.PNL(rec.Direction, spec, rec.OpenPrice, rec.ClosePrice, pos.lots, rec.CloseTime)
	if err != nil {
		return err
	}

	state.cash = state.cash.Add(pnl)
	origPNL, _ := rec.OriginalPNL.Float64()
	state.trades = append(state.trades, trade.Closed{
		StrategyID:   rec.StrategyID,
		Ticket:       rec.Ticket,
		Symbol:       rec.Symbol,
		Direction:    rec.Direction,
		OpenTime:     rec.OpenTime,
		CloseTime:    rec.CloseTime,
		OpenPrice:    rec.OpenPrice,
		ClosePrice:   rec.ClosePrice,
		StopPrice:    rec.StopPrice,
		SizedLots:    pos.lots,
		OriginalSize: rec.OriginalSize,
		RealizedPNL:  pnl,
		EntryEquity:  pos.entryEquity,
		ExitEquity:   exitEquity,
		RiskPct:      null.Float64From(rec.RiskPct),
		OriginalPNL:  null.Float64From(origPNL),
		OriginalMAE:  rec.OriginalMAE,
		OriginalMFE:  rec.OriginalMFE,
	})
	e.removePosition(state, pos.id)
	*lastTS = rec.CloseTime

	return e.appendSample(state, rec.CloseTime)
}

// emitBarSamples appends an equity sample for every price bar of any open
// position's symbol strictly inside (from, to). The floating P&L of each
// sample spans ALL open positions; concurrent exposure must stay globally
// visible, not locally tracked
func (e *Engine) emitBarSamples(state *portfolioState, from, to time.Time) error {
	if !e.cfg.Output.GenerateBarEquity || len(state.open) == 0 || !from.Before(to) {
		return nil
	}

	seen := make(map[string]struct{}, len(state.open))
	var stamps []time.Time
	for _, id := range state.openOrder {
		symbol := state.open[id].record.Symbol
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		series := e.pricing.Series(symbol)
		if series == nil {
			continue
		}
		bars := series.Between(from, to)
		for i := range bars {
			stamps = append(stamps, bars[i].Time)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	var prev time.Time
	for _, ts := range stamps {
		if ts.Equal(prev) {
			continue
		}
		prev = ts
		floating, err := e.totalFloating(state, ts)
		if err != nil {
			return err
		}
		state.curve = append(state.curve, EquitySample{
			Time:          ts,
			Equity:        state.cash.Add(floating),
			Cash:          state.cash,
			FloatingPNL:   floating,
			OpenPositions: len(state.open),
		})
	}
	return nil
}

// floatingPNL marks one open position to market at ts
func (e *Engine) floatingPNL(pos *openPosition, ts time.Time) (decimal.Decimal, error) {
	price, err := e.pricing.PriceAt(pos.record.Symbol, ts, pricing.FieldClose)
	if err != nil {
		return decimal.Zero, err
	}
	spec := e.specs.Lookup(pos.record.Symbol)
	return e.sizer.PNL(pos.record.Direction, spec, pos.record.OpenPrice, price, pos.lots, ts)
}

// totalFloating sums floating P&L across every open position at ts
func (e *Engine) totalFloating(state *portfolioState, ts time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range state.openOrder {
		pnl, err := e.floatingPNL(state.open[id], ts)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(pnl)
	}
	return total, nil
}

func (e *Engine) currentEquity(state *portfolioState, ts time.Time) (decimal.Decimal, error) {
	floating, err := e.totalFloating(state, ts)
	if err != nil {
		return decimal.Zero, err
	}
	return state.cash.Add(floating), nil
}

func (e *Engine) appendSample(state *portfolioState, ts time.Time) error {
	floating, err := e.totalFloating(state, ts)
	if err != nil {
		return err
	}
	state.curve = append(state.curve, EquitySample{
		Time:          ts,
		Equity:        state.cash.Add(floating),
		Cash:          state.cash,
		FloatingPNL:   floating,
		OpenPositions: len(state.open),
	})
	return nil
}

// closeAllPositions force-closes every surviving position at the horizon
// using the latest available price. Missing prices are tolerated only
// here: the position is logged and dropped without a closed-trade record.
// Iteration runs over a stable snapshot because removals mutate the set
func (e *Engine) closeAllPositions(state *portfolioState, end time.Time) {
	snapshot := make([]string, len(state.openOrder))
	copy(snapshot, state.openOrder)

	for _, id := range snapshot {
		pos := state.open[id]
		spec := e.specs.Lookup(pos.record.Symbol)
		closePrice, err := e.pricing.PriceAt(pos.record.Symbol, end, pricing.FieldClose)
		if err == nil {
			var pnl decimal.Decimal
			pnl, err = e.sizer.PNL(pos.record.Direction, spec, pos.record.OpenPrice, closePrice, pos.lots, end)
			if err == nil {
				state.cash = state.cash.Add(pnl)
				state.trades = append(state.trades, trade.Closed{
					StrategyID:   pos.record.StrategyID,
					Ticket:       pos.record.Ticket,
					Symbol:       pos.record.Symbol,
					Direction:    pos.record.Direction,
					OpenTime:     pos.record.OpenTime,
					CloseTime:    end,
					OpenPrice:    pos.record.OpenPrice,
					ClosePrice:   closePrice,
					StopPrice:    pos.record.StopPrice,
					SizedLots:    pos.lots,
					OriginalSize: pos.record.OriginalSize,
					RealizedPNL:  pnl,
					EntryEquity:  pos.entryEquity,
					ExitEquity:   state.cash,
					ForcedClose:  true,
				})
			}
		}
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("position", id).
				Msg("could not force-close position at horizon, dropping")
		}
		e.removePosition(state, id)
	}

	state.curve = append(state.curve, EquitySample{
		Time:   end,
		Equity: state.cash,
		Cash:   state.cash,
	})
}

func (e *Engine) removePosition(state *portfolioState, id string) {
	delete(state.open, id)
	for i := range state.openOrder {
		if state.openOrder[i] == id {
			state.openOrder = append(state.openOrder[:i], state.openOrder[i+1:]...)
			break
		}
	}
}

func positionID(strategyID, ticket string) string {
	return strategyID + "_" + ticket
}
