package parser

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statementlens/internal/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"25.99", "25.99", false},
		{"1,234.56", "1234.56", false},
		{"£25.99", "25.99", false},
		{"-25.99", "-25.99", false},
		{"£1,234,567.89", "1234567.89", false},
		{"$ 3,000.10", "3000.1", false},
		{"0.00", "0", false},
		{"", "0", false},
		{" 25.99 ", "25.99", false},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestStartsWithDate(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"15/01/2024 CARD PAYMENT", true},
		{"1/1/24 PAYMENT", true},
		{"15 Jan 2024 CARD PAYMENT", true},
		{"15-Jan-2024 PAYMENT", true},
		{"CARD PAYMENT 15/01/2024", false},
		{"not a date line", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := startsWithDate(tt.input)
			if got != tt.expected {
				t.Errorf("startsWithDate(%q): got %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"15/01/2024 CARD PAYMENT", "15/01/2024"},
		{"15 Jan 2024 CARD PAYMENT", "15 Jan 2024"},
		{"15-Jan-2024 PAYMENT", "15-Jan-2024"},
		{"not a date", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := extractDate(tt.input)
			if got != tt.expected {
				t.Errorf("extractDate(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestISODate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"15/01/2024", "2024-01-15"},
		{"1/2/24", "2024-02-01"},
		{"15 Jan 24", "2024-01-15"},
		{"15 January 2024", "2024-01-15"},
		{"5-Mar-2023", "2023-03-05"},
		{"sometime", "sometime"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := isoDate(tt.input); got != tt.expected {
				t.Errorf("isoDate(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindAccountNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Account number: 12345678", "12345678"},
		{"Account: 87654321 Sort code: 20-00-00", "87654321"},
		{"no account here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := findAccountNumber(tt.input)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFindSortCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sort code: 20-00-00", "20-00-00"},
		{"Sort code 40-12-34 Account", "40-12-34"},
		{"no sort code", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := findSortCode(tt.input)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUKTable(t *testing.T) {
	info := &models.StatementInfo{
		AccountNumber: "12345678",
		SortCode:      "23-05-80",
		AccountHolder: "Jane Doe",
		PeriodStart:   "2024-01-01",
		PeriodEnd:     "2024-01-31",
		Currency:      "GBP",
		Transactions: []models.Transaction{
			{Date: "15/01/2024", Description: "CARD PAYMENT", Type: models.TypeDebit, Amount: decimal.RequireFromString("25.99"), Balance: decimal.RequireFromString("100"), ParseMethod: "slash-date"},
			{Date: "16/01/2024", Description: "NO BALANCE", Type: models.TypeCredit, Amount: decimal.RequireFromString("1")},
		},
	}

	table := ukTable(info)
	if table.Len() != 2 {
		t.Fatalf("rows: got %d, want 2", table.Len())
	}
	row := table.Rows[0]
	if row[ColDate] != "2024-01-15" {
		t.Errorf("date: got %v", row[ColDate])
	}
	if row[ColAccount] != "23-05-80 12345678" {
		t.Errorf("account: got %v", row[ColAccount])
	}
	if row[ColCurrency] != "GBP" {
		t.Errorf("currency: got %v", row[ColCurrency])
	}
	if table.Rows[1][ColBalance] != nil {
		t.Errorf("missing balance should be nil, got %v", table.Rows[1][ColBalance])
	}
	if row[ColHolder] != "Jane Doe" {
		t.Errorf("holder: got %v", row[ColHolder])
	}
	if row[ColPeriodStart] != "2024-01-01" || row[ColPeriodEnd] != "2024-01-31" {
		t.Errorf("period: got %v to %v", row[ColPeriodStart], row[ColPeriodEnd])
	}
	if row[ColParseMethod] != "slash-date" {
		t.Errorf("parse method: got %v", row[ColParseMethod])
	}
	if table.Rows[1][ColParseMethod] != nil {
		t.Errorf("empty parse method should be nil, got %v", table.Rows[1][ColParseMethod])
	}
}

func TestExtractPeriod(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end string
	}{
		{"slash dates", "Statement period: 01/01/2024 to 31/01/2024", "2024-01-01", "2024-01-31"},
		{"text dates", "Statement Period 1 February 2024 - 29 February 2024", "2024-02-01", "2024-02-29"},
		{"no period line", "Date Description 01/01/2024 02/01/2024", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := extractPeriod(tt.text)
			if start != tt.start || end != tt.end {
				t.Errorf("got %q to %q, want %q to %q", start, end, tt.start, tt.end)
			}
		})
	}
}
