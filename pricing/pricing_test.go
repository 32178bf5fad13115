package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mkBar(ts time.Time, o, h, l, c float64) Bar {
	return Bar{
		Time:  ts,
		Open:  decimal.NewFromFloat(o),
		High:  decimal.NewFromFloat(h),
		Low:   decimal.NewFromFloat(l),
		Close: decimal.NewFromFloat(c),
	}
}

func testEngine(t *testing.T) (*Engine, time.Time) {
	t.Helper()
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	bars := []Bar{
		mkBar(base, 100, 101, 99, 100.5),
		mkBar(base.Add(time.Minute), 100.5, 102, 100, 101),
		mkBar(base.Add(2*time.Minute), 101, 103, 100.5, 102),
	}
	s, err := NewSeries("XAUUSD", bars)
	if err != nil {
		t.Fatal(err)
	}
	fx := map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.10),
	}
	return NewEngine(map[string]*Series{"XAUUSD": s}, fx), base
}

func TestNewSeries(t *testing.T) {
	t.Parallel()
	_, err := NewSeries("EMPTY", nil)
	if !errors.Is(err, ErrEmptySeries) {
		t.Errorf("expected: %v, received %v", ErrEmptySeries, err)
	}

	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	_, err = NewSeries("BAD", []Bar{
		mkBar(base.Add(time.Minute), 1, 2, 0.5, 1.5),
		mkBar(base, 1, 2, 0.5, 1.5),
	})
	if !errors.Is(err, ErrUnsortedSeries) {
		t.Errorf("expected: %v, received %v", ErrUnsortedSeries, err)
	}

	_, err = NewSeries("BAD", []Bar{mkBar(base, 1, 0.9, 0.5, 1.5)})
	if !errors.Is(err, ErrOHLCViolation) {
		t.Errorf("expected: %v, received %v", ErrOHLCViolation, err)
	}
}

func TestPriceAtAsOf(t *testing.T) {
	t.Parallel()
	e, base := testEngine(t)

	// exact timestamp
	p, err := e.PriceAt("XAUUSD", base.Add(time.Minute), FieldClose)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(decimal.NewFromInt(101)) {
		t.Errorf("expected 101, received %v", p)
	}

	// between bars resolves to the last bar at or before
	p, err = e.PriceAt("XAUUSD", base.Add(90*time.Second), FieldHigh)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(decimal.NewFromInt(102)) {
		t.Errorf("expected 102, received %v", p)
	}

	// after the series resolves to the final bar
	p, err = e.PriceAt("XAUUSD", base.Add(time.Hour), FieldClose)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(decimal.NewFromInt(102)) {
		t.Errorf("expected 102, received %v", p)
	}
}

func TestPriceAtExtrapolateToEarliest(t *testing.T) {
	t.Parallel()
	e, base := testEngine(t)
	p, err := e.PriceAt("XAUUSD", base.Add(-time.Hour), FieldClose)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("expected 100.5, received %v", p)
	}
}

func TestPriceAtUnknownSymbol(t *testing.T) {
	t.Parallel()
	e, base := testEngine(t)
	_, err := e.PriceAt("GBPJPY", base, FieldClose)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected: %v, received %v", ErrPriceUnavailable, err)
	}
	_, err = e.PriceAt("XAUUSD", base, Field("volume"))
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected: %v, received %v", ErrInvalidField, err)
	}
}

func TestFXRate(t *testing.T) {
	t.Parallel()
	e, base := testEngine(t)

	// static default table fallback
	r, err := e.FXRate("EURUSD", base)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromFloat(1.10)) {
		t.Errorf("expected 1.10, received %v", r)
	}

	_, err = e.FXRate("CHFUSD", base)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected: %v, received %v", ErrPriceUnavailable, err)
	}

	// loaded series wins over the default table
	bars := []Bar{mkBar(base, 1.25, 1.26, 1.24, 1.255)}
	s, err := NewSeries("GBPUSD", bars)
	if err != nil {
		t.Fatal(err)
	}
	e2 := NewEngine(map[string]*Series{"GBPUSD": s}, map[string]decimal.Decimal{
		"GBPUSD": decimal.NewFromFloat(1.27),
	})
	r, err = e2.FXRate("GBPUSD", base)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromFloat(1.255)) {
		t.Errorf("expected 1.255, received %v", r)
	}
}

func TestConvertToUSD(t *testing.T) {
	t.Parallel()
	e, base := testEngine(t)

	amt, err := e.ConvertToUSD(decimal.NewFromInt(100), "USD", base)
	if err != nil {
		t.Fatal(err)
	}
	if !amt.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected identity conversion, received %v", amt)
	}

	amt, err = e.ConvertToUSD(decimal.NewFromInt(100), "EUR", base)
	if err != nil {
		t.Fatal(err)
	}
	if !amt.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected 110, received %v", amt)
	}

	_, err = e.ConvertToUSD(decimal.NewFromInt(100), "CHF", base)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected: %v, received %v", ErrPriceUnavailable, err)
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()
	e, base := testEngine(t)
	s := e.Series("XAUUSD")
	bars := s.Between(base, base.Add(2*time.Minute))
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar strictly between, received %v", len(bars))
	}
	if !bars[0].Time.Equal(base.Add(time.Minute)) {
		t.Errorf("expected %v, received %v", base.Add(time.Minute), bars[0].Time)
	}
}
