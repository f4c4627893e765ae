// Package legacy reads rows out of a legacy church-management export.
// Sources are forward-only, single-consumer row streams with values coerced
// to a small set of types; columns are addressed by name through a Schema
// bound once at open.
package legacy

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Value is one cell of a legacy row. It holds one of:
// nil, string, int64, decimal.Decimal, time.Time, bool.
type Value interface{}

// AsString converts a Value to its string form.
// Nil values become the empty string; strings are whitespace-trimmed.
func AsString(v Value) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case decimal.Decimal:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format("2006-01-02")
	default:
		return ""
	}
}

// AsInt64 converts a Value to int64.
// Returns false when the value is nil or cannot be interpreted as an integer.
func AsInt64(v Value) (int64, bool) {
	switch i := v.(type) {
	case nil:
		return 0, false
	case int64:
		return i, true
	case string:
		s := strings.TrimSpace(i)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case decimal.Decimal:
		if !i.IsInteger() {
			return 0, false
		}
		return i.IntPart(), true
	default:
		return 0, false
	}
}

// AsDecimal converts a Value to a decimal.
// Returns false when the value is nil or cannot be interpreted as a number.
func AsDecimal(v Value) (decimal.Decimal, bool) {
	switch d := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return d, true
	case int64:
		return decimal.NewFromInt(d), true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return decimal.Zero, false
		}
		// Currency exports often carry a dollar sign and thousands separators.
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		dec, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return dec, true
	default:
		return decimal.Zero, false
	}
}

// AsBool converts a Value to bool.
// String forms accepted: true/false, yes/no, 1/0, t/f, y/n (case-insensitive).
func AsBool(v Value) (bool, bool) {
	switch b := v.(type) {
	case nil:
		return false, false
	case bool:
		return b, true
	case int64:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1", "t", "y":
			return true, true
		case "false", "no", "0", "f", "n":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}
