package models

import "github.com/shopspring/decimal"

// Transaction represents a single bank statement transaction as read from the
// statement text, before it is turned into a movement row.
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Type        string          `json:"type"` // DEBIT or CREDIT
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	ParseMethod string          `json:"parseMethod,omitempty"` // line pattern that matched, kept as a movement column
}

// Transaction types.
const (
	TypeDebit  = "DEBIT"
	TypeCredit = "CREDIT"
)

// StatementInfo holds metadata extracted from the statement.
type StatementInfo struct {
	Bank          string
	AccountHolder string
	AccountNumber string
	SortCode      string
	PeriodStart   string // ISO date, empty when the statement names no period
	PeriodEnd     string
	Currency      string
	Transactions  []Transaction
}
