package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCurrency coerces a raw value into a float amount. Already-numeric
// values pass through untouched, which keeps normalization idempotent.
// Malformed values coerce to 0.0 rather than failing the record.
func ParseCurrency(v any) float64 {
	switch value := v.(type) {
	case nil:
		return 0.0
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case string:
		return parseCurrencyString(value)
	default:
		return 0.0
	}
}

// parseCurrencyString applies the separator rule the source pipeline
// relies on: a comma is always the decimal separator; with only dots, the
// LAST dot is the decimal separator and earlier dots are thousands
// separators; with neither, the string is a plain number.
func parseCurrencyString(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0.0
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, "."):
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + "." + s[last+1:]
	}

	// decimal avoids float artifacts while the separators are rewritten;
	// the sink stores plain Float64 columns.
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return 0.0
	}
	f, _ := amount.Float64()
	return f
}

// parseNumber coerces a raw value into a plain float. Unlike currency
// parsing there is no separator rewriting; malformed coerces to 0.0.
func parseNumber(v any) float64 {
	switch value := v.(type) {
	case nil:
		return 0.0
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case string:
		n, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return 0.0
		}
		f, _ := n.Float64()
		return f
	default:
		return 0.0
	}
}
