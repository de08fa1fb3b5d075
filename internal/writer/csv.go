package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/insightdelivered/statementlens/internal/models"
)

// Metadata describes the statement a table came from. It is written above
// the table when CSVWriter.IncludeHeader is set.
type Metadata struct {
	Bank        string
	ProductType string
	Account     string
	Currency    string
	Period      string
}

// CSVWriter writes movement tables to CSV format.
type CSVWriter struct {
	IncludeHeader bool
	Metadata      Metadata
}

// WriteToFile writes the table to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, table models.Table, currencyColumns []string) error {
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

// Write writes the table in CSV format to the given writer. Currency columns
// are rendered with two decimals.
func (w *CSVWriter) Write(out io.Writer, table models.Table, currencyColumns []string) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		meta := [][2]string{
			{"# Bank", w.Metadata.Bank},
			{"# Product", w.Metadata.ProductType},
			{"# Account", w.Metadata.Account},
			{"# Currency", w.Metadata.Currency},
			{"# Period", w.Metadata.Period},
		}
		for _, kv := range meta {
			if kv[1] == "" {
				continue
			}
			if err := writer.Write(kv[:]); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	isCurrency := make(map[string]bool, len(currencyColumns))
	for _, c := range currencyColumns {
		isCurrency[c] = true
	}

	record := make([]string, len(table.Columns))
	for _, r := range table.Rows {
		for i, c := range table.Columns {
			record[i] = cellText(r[c], isCurrency[c])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
