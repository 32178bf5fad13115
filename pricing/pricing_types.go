package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrPriceUnavailable is returned when no price can be resolved for a
	// symbol at a timestamp. During normal mark-to-market this is fatal;
	// only end-of-horizon liquidation recovers from it
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrInvalidField is returned for an unknown bar field
	ErrInvalidField = errors.New("invalid bar field")
	// ErrEmptySeries is returned when a series holds no bars
	ErrEmptySeries = errors.New("price series contains no bars")
	// ErrUnsortedSeries is returned when bar timestamps decrease
	ErrUnsortedSeries = errors.New("price series timestamps must be non-decreasing")
	// ErrOHLCViolation is returned when a bar's high/low bounds are broken
	ErrOHLCViolation = errors.New("bar violates OHLC relationship")
)

// Field selects which value of a bar a lookup returns
type Field string

// Bar field values
const (
	FieldOpen  Field = "open"
	FieldHigh  Field = "high"
	FieldLow   Field = "low"
	FieldClose Field = "close"
)

// Bar is a single OHLC interval
type Bar struct {
	Time  time.Time       `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// Series is an immutable, time-ordered sequence of bars for one symbol
type Series struct {
	Symbol string
	bars   []Bar
}

// Engine resolves prices for symbols at arbitrary timestamps and converts
// amounts between instrument currencies and USD
type Engine struct {
	series         map[string]*Series
	defaultFXRates map[string]decimal.Decimal
}
