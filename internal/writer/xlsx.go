// Package writer renders movement tables as spreadsheets and CSV files.
package writer

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statementlens/internal/models"
)

// CurrencyFormat is the number format applied to monetary cells.
const CurrencyFormat = `"$"#,##0.00_-`

// DefaultSheet is the name of the only worksheet in rendered workbooks.
const DefaultSheet = "Movimientos"

// XLSXWriter writes tables to Excel workbooks.
type XLSXWriter struct {
	// SheetName overrides DefaultSheet.
	SheetName string
}

// Render writes table to an .xlsx file at path and formats the currency
// columns.
func Render(table models.Table, currencyColumns []string, path string) error {
	return (&XLSXWriter{}).WriteToFile(path, table, currencyColumns)
}

// WriteToFile writes the workbook to path.
func (w *XLSXWriter) WriteToFile(path string, table models.Table, currencyColumns []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := w.Write(f, table, currencyColumns); err != nil {
		return err
	}
	return f.Close()
}

// Write writes the header row and every table row, then applies
// CurrencyFormat to the numeric cells of each currency column present in the
// header. Non-numeric cells keep the default style; currency columns missing
// from the header are ignored.
func (w *XLSXWriter) Write(out io.Writer, table models.Table, currencyColumns []string) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := w.SheetName
	if sheet == "" {
		sheet = DefaultSheet
	}
	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range table.Rows {
		values := make([]any, len(table.Columns))
		for j, c := range table.Columns {
			values[j] = cellValue(r[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := applyCurrencyFormat(book, sheet, table, currencyColumns); err != nil {
		return err
	}

	if err := book.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func applyCurrencyFormat(book *excelize.File, sheet string, table models.Table, currencyColumns []string) error {
	if len(currencyColumns) == 0 || table.Empty() {
		return nil
	}

	numFmt := CurrencyFormat
	style, err := book.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("failed to create currency style: %w", err)
	}

	for _, name := range currencyColumns {
		col := table.ColumnIndex(name)
		if col < 0 {
			continue
		}
		for i, r := range table.Rows {
			if _, ok := numeric(r[name]); !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := book.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("failed to format %s: %w", cell, err)
			}
		}
	}
	return nil
}
