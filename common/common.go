package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNilArguments is returned when a required argument is nil
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilResult is returned when a simulation result is required but absent
	ErrNilResult = errors.New("received nil simulation result")
)

// FmtCurrency renders a USD amount in a compact human readable form
func FmtCurrency(v float64) string {
	av := v
	if av < 0 {
		av = -av
	}
	switch {
	case av >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case av >= 1_000:
		return fmt.Sprintf("$%.2fK", v/1_000)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// FmtPercent renders a percentage with two decimals
func FmtPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
