package trade

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDirection(t *testing.T) {
	t.Parallel()
	cases := map[string]Direction{
		"Buy":      Buy,
		"SELL":     Sell,
		"buy":      Buy,
		"BuyStop":  Buy,
		"sellstop": Sell,
	}
	for in, want := range cases {
		got, err := ParseDirection(in)
		if err != nil {
			t.Fatalf("%v: %v", in, err)
		}
		if got != want {
			t.Errorf("%v: expected %v, received %v", in, want, got)
		}
	}
	_, err := ParseDirection("hold")
	if !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("expected: %v, received %v", ErrInvalidDirection, err)
	}
}

func TestRecordValidate(t *testing.T) {
	t.Parallel()
	open := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := Record{
		StrategyID: "alpha",
		Ticket:     "1",
		Symbol:     "XAUUSD",
		Direction:  Buy,
		OpenTime:   open,
		CloseTime:  open.Add(time.Hour),
		OpenPrice:  decimal.NewFromInt(2000),
		ClosePrice: decimal.NewFromInt(2010),
	}
	if err := r.Validate(); err != nil {
		t.Error(err)
	}

	bad := r
	bad.CloseTime = open.Add(-time.Hour)
	if err := bad.Validate(); !errors.Is(err, ErrTimeOrder) {
		t.Errorf("expected: %v, received %v", ErrTimeOrder, err)
	}

	bad = r
	bad.Direction = "HOLD"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("expected: %v, received %v", ErrInvalidDirection, err)
	}

	bad = r
	bad.StrategyID = ""
	if err := bad.Validate(); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected: %v, received %v", ErrMissingField, err)
	}

	if err := ValidateAll([]Record{r, bad}); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected: %v, received %v", ErrMissingField, err)
	}
}
