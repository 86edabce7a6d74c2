package value

import (
	"io"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// defaultDateLayout is the strftime layout dates render with when no filter
// reformats them.
const defaultDateLayout = "%Y-%m-%d %H:%M:%S %z"

// Encoder transforms rendered text on its way to the output sink, e.g. for
// HTML escaping. Encoders must be safe for concurrent use.
type Encoder interface {
	Encode(w io.Writer, text string) error
}

// WriteTo writes the value's rendered form through the encoder. Numeric
// output honors the culture when one other than the invariant culture is
// configured; all other kinds render culture-independently.
func (v Value) WriteTo(w io.Writer, enc Encoder, culture language.Tag) error {
	switch d := v.data.(type) {
	case decimal.Decimal:
		return enc.Encode(w, formatNumber(d, culture))
	case []Value:
		for _, item := range d {
			if err := item.WriteTo(w, enc, culture); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(w, v.ToString())
	}
}

// formatNumber renders a decimal, using x/text locale data for non-invariant
// cultures. Integral decimals never grow a fraction part.
func formatNumber(d decimal.Decimal, culture language.Tag) string {
	if culture == language.Und {
		return d.String()
	}
	p := message.NewPrinter(culture)
	if d.IsInteger() {
		return p.Sprint(number.Decimal(d.IntPart(), number.NoSeparator()))
	}
	f, _ := d.Float64()
	return p.Sprint(number.Decimal(f, number.NoSeparator()))
}

// FormatTime renders a time with an strftime layout. Used by the date filter
// and by the default DateTime rendering.
func FormatTime(t time.Time, layout string) string {
	return formatTime(t, layout)
}

func formatTime(t time.Time, layout string) string {
	return strftime.Format(layout, t)
}
