// Package normalize reshapes parsed movement tables into the layout used for
// exports and names the columns that hold money.
package normalize

import (
	"github.com/insightdelivered/statementlens/internal/models"
	"github.com/insightdelivered/statementlens/internal/parser"
)

// Column is one output column of an export layout.
type Column struct {
	Name     string
	Currency bool
	value    func(models.Row) any
}

// Layout is the export shape of one format.
type Layout struct {
	Columns []Column
}

// CurrencyColumns returns the names of the monetary columns in order.
func (l Layout) CurrencyColumns() []string {
	out := []string{}
	for _, c := range l.Columns {
		if c.Currency {
			out = append(out, c.Name)
		}
	}
	return out
}

// rename copies src. A row that already carries the output name keeps its
// value, so normalizing a normalized table changes nothing.
func rename(name, src string, currency bool) Column {
	return Column{
		Name:     name,
		Currency: currency,
		value: func(r models.Row) any {
			if v, ok := r[src]; ok {
				return v
			}
			return r[name]
		},
	}
}

// byType takes the movement amount only when the row type matches typ.
func byType(name, typ string) Column {
	return Column{
		Name:     name,
		Currency: true,
		value: func(r models.Row) any {
			if v, ok := r[name]; ok {
				return v
			}
			if t, _ := r[parser.ColType].(string); t == typ {
				return r[parser.ColAmount]
			}
			return nil
		},
	}
}

var ukCurrentAccount = Layout{Columns: []Column{
	rename("Date", parser.ColDate, false),
	rename("Description", parser.ColDescription, false),
	rename("Type", parser.ColType, false),
	byType("Paid Out", models.TypeDebit),
	byType("Paid In", models.TypeCredit),
	rename("Balance", parser.ColBalance, true),
}}

var layouts = map[string]Layout{
	"bbva_debito_v1": {Columns: []Column{
		rename("FECHA OPERACIÓN", parser.ColFechaOperacion, false),
		rename("FECHA LIQUIDACIÓN", parser.ColFechaLiquidacion, false),
		rename("DESCRIPCIÓN", parser.ColDescripcion, false),
		rename("REFERENCIA", parser.ColReferencia, false),
		rename("CARGOS", parser.ColCargo, true),
		rename("ABONOS", parser.ColAbono, true),
		rename("SALDO OPERACIÓN", parser.ColSaldoOperacion, true),
		rename("SALDO LIQUIDACIÓN", parser.ColSaldoLiquidacion, true),
	}},
	"bbva_tc_v1": {Columns: []Column{
		rename("FECHA OPERACIÓN", parser.ColFechaOperacion, false),
		rename("FECHA CARGO", parser.ColFechaCargo, false),
		rename("DESCRIPCIÓN", parser.ColDescripcion, false),
		rename("IMPORTE CARGOS", parser.ColImporteCargo, true),
		rename("IMPORTE ABONOS", parser.ColImporteAbono, true),
	}},
	"metro_current_v1":    ukCurrentAccount,
	"hsbc_current_v1":     ukCurrentAccount,
	"barclays_current_v1": ukCurrentAccount,
}

// Normalize converts table into the export shape for formatID and returns the
// monetary column names. Unknown formats pass through unchanged with no
// monetary columns. The input table is never modified.
func Normalize(formatID string, table models.Table) (models.Table, []string) {
	layout, ok := layouts[formatID]
	if !ok {
		return table, []string{}
	}

	names := make([]string, len(layout.Columns))
	for i, c := range layout.Columns {
		names[i] = c.Name
	}

	out := models.NewTable(names...)
	out.Rows = make([]models.Row, 0, len(table.Rows))
	for _, r := range table.Rows {
		row := make(models.Row, len(layout.Columns))
		for _, c := range layout.Columns {
			row[c.Name] = c.value(r)
		}
		out.Append(row)
	}

	return out, layout.CurrencyColumns()
}
