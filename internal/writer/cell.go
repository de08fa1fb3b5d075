package writer

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// numeric returns v as a float64 when it is a finite number.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n.InexactFloat64(), true
	case *decimal.Decimal:
		if n == nil {
			return 0, false
		}
		return n.InexactFloat64(), true
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		f := float64(n)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// cellValue converts a movement value into something a spreadsheet cell can
// hold. Decimals become floats; NaN and infinities become empty cells.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	}
	if f, ok := numeric(v); ok {
		return f
	}
	switch v.(type) {
	case float64, float32:
		return nil
	}
	return fmt.Sprint(v)
}

// cellText renders a value for text output. Monetary values are fixed to two
// decimals.
func cellText(v any, currency bool) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		if currency {
			return x.StringFixed(2)
		}
		return x.String()
	case time.Time:
		return x.Format("2006-01-02")
	}
	if f, ok := numeric(v); ok {
		if currency {
			return decimal.NewFromFloat(f).StringFixed(2)
		}
		return fmt.Sprint(v)
	}
	switch v.(type) {
	case float64, float32:
		return ""
	}
	return fmt.Sprint(v)
}
