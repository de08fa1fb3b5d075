package jobs

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statementlens/internal/models"
)

// Columns consulted, in order, when summarizing a movement table.
var (
	dateColumns     = []string{"fecha_liquidacion", "fecha_operacion", "date", "posted_date"}
	currencyColumns = []string{"moneda", "currency"}
	accountColumns  = []string{"cuenta", "account"}
	periodStartCol  = "period_start"
	periodEndCol    = "period_end"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2006/01/02",
}

// Summarize extracts the job metadata from a parsed table. The date range is
// taken from the first date column the table has; values that do not parse
// as dates are ignored. When no movement date parses, the statement period
// columns are used instead.
func Summarize(table models.Table) Summary {
	s := Summary{MovementCount: table.Len()}
	s.Currency = firstString(table, currencyColumns)
	s.Account = firstString(table, accountColumns)

	for _, col := range dateColumns {
		if !table.HasColumn(col) {
			continue
		}
		var from, to time.Time
		for _, v := range table.Values(col) {
			d, ok := parseDate(v)
			if !ok {
				continue
			}
			if from.IsZero() || d.Before(from) {
				from = d
			}
			if to.IsZero() || d.After(to) {
				to = d
			}
		}
		if !from.IsZero() {
			s.DateFrom = from.Format("2006-01-02")
			s.DateTo = to.Format("2006-01-02")
		}
		break
	}

	if s.DateFrom == "" {
		from, okFrom := firstDate(table, periodStartCol)
		to, okTo := firstDate(table, periodEndCol)
		if okFrom && okTo {
			s.DateFrom = from.Format("2006-01-02")
			s.DateTo = to.Format("2006-01-02")
		}
	}

	return s
}

func firstDate(table models.Table, col string) (time.Time, bool) {
	v, ok := table.FirstValue(col)
	if !ok {
		return time.Time{}, false
	}
	return parseDate(v)
}

func firstString(table models.Table, cols []string) string {
	for _, col := range cols {
		if v, ok := table.FirstValue(col); ok {
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}

func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case string:
		d = strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// PreviewRows returns the first n rows of table as JSON-safe maps. Decimals
// become floats, NaN and infinities become null and times become ISO dates.
func PreviewRows(table models.Table, n int) []map[string]any {
	head := table.Head(n)
	out := make([]map[string]any, 0, head.Len())
	for _, r := range head.Rows {
		m := make(map[string]any, len(head.Columns))
		for _, c := range head.Columns {
			m[c] = jsonSafe(r[c])
		}
		out = append(out, m)
	}
	return out
}

func jsonSafe(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	case time.Time:
		return x.Format("2006-01-02")
	}
	return v
}
