package transform

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

const dateLayout = "2006-01-02"

// datetimeLayouts are the shapes the feed emits; zone-less values are
// interpreted as UTC.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatDate converts a source ISO-8601 datetime to the target's
// YYYY-MM-DD form, parsed and formatted in UTC. Empty input yields empty
// output.
func FormatDate(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", nil
	}
	for _, layout := range datetimeLayouts {
		loc := time.UTC
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return t.UTC().Format(dateLayout), nil
		}
	}
	return "", core.NewDataError(fmt.Sprintf("unparseable datetime %q", s), nil)
}

// CurrencyValue rounds a rate or cost to two decimals and returns the
// numeric cell value. Currency is expressed via column format, never as a
// "$..." string.
func CurrencyValue(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// MaxUnitsPercent renders a 0..∞ capacity decimal as the percentage text
// the Resources sheet carries, e.g. 1.0 → "100%".
func MaxUnitsPercent(units float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(units*100)))
}

// OwnerContact builds the project owner contact, or a zero contact when
// the source has neither name nor email.
func OwnerContact(name, email string) core.Contact {
	return core.Contact{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
}
