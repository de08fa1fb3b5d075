package parser

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMetroBankParser_Parse(t *testing.T) {
	p := &MetroBankParser{}

	pages := []string{
		`Metro Bank
Account Statement
Account holder: John Smith
Sort code: 23-05-80
Account number: 12345678
Statement period: 01/01/2024 to 31/01/2024

Date Description Paid out Paid in Balance
15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56
16/01/2024 DIRECT DEBIT SKY UK LTD 45.00 1,189.56
17/01/2024 BANK CREDIT SALARY 2,500.00 3,689.56
18/01/2024 CARD PAYMENT AMAZON UK 15.49 3,674.07`,
	}

	info := p.parseStatement(pages)

	if info.AccountNumber != "12345678" {
		t.Errorf("account number: got %q, want %q", info.AccountNumber, "12345678")
	}
	if info.SortCode != "23-05-80" {
		t.Errorf("sort code: got %q, want %q", info.SortCode, "23-05-80")
	}
	if info.AccountHolder != "John Smith" {
		t.Errorf("account holder: got %q, want %q", info.AccountHolder, "John Smith")
	}
	if info.PeriodStart != "2024-01-01" || info.PeriodEnd != "2024-01-31" {
		t.Errorf("period: got %q to %q", info.PeriodStart, info.PeriodEnd)
	}

	if len(info.Transactions) != 4 {
		t.Fatalf("transactions: got %d, want 4", len(info.Transactions))
	}

	txn := info.Transactions[0]
	if txn.Date != "15/01/2024" {
		t.Errorf("txn[0].Date: got %q, want %q", txn.Date, "15/01/2024")
	}
	if !txn.Amount.Equal(dec("25.99")) {
		t.Errorf("txn[0].Amount: got %s, want 25.99", txn.Amount)
	}
	if txn.Type != "DEBIT" {
		t.Errorf("txn[0].Type: got %q, want %q", txn.Type, "DEBIT")
	}

	txn = info.Transactions[1]
	if !txn.Amount.Equal(dec("45")) {
		t.Errorf("txn[1].Amount: got %s, want 45.00", txn.Amount)
	}
	if txn.Type != "DEBIT" {
		t.Errorf("txn[1].Type: got %q, want %q", txn.Type, "DEBIT")
	}

	// Money in with a single amount column is only recognisable from the balance
	txn = info.Transactions[2]
	if !txn.Amount.Equal(dec("2500")) {
		t.Errorf("txn[2].Amount: got %s, want 2500.00", txn.Amount)
	}
	if txn.Type != "CREDIT" {
		t.Errorf("txn[2].Type: got %q, want %q", txn.Type, "CREDIT")
	}

	txn = info.Transactions[3]
	if !txn.Amount.Equal(dec("15.49")) {
		t.Errorf("txn[3].Amount: got %s, want 15.49", txn.Amount)
	}
	if txn.Type != "DEBIT" {
		t.Errorf("txn[3].Type: got %q, want %q", txn.Type, "DEBIT")
	}
}

func TestMetroBankParser_ParsePages(t *testing.T) {
	p := &MetroBankParser{}

	table, err := p.ParsePages([]string{
		`Metro Bank
Sort code: 23-05-80
Account number: 12345678
Date Description Paid out Paid in Balance
Opening balance 100.00
15/01/2024 CARD PAYMENT TESCO 25.99 74.01`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("rows: got %d, want 1", table.Len())
	}
	for _, col := range ukColumns {
		if !table.HasColumn(col) {
			t.Errorf("missing column %q", col)
		}
	}

	row := table.Rows[0]
	if row[ColDate] != "2024-01-15" {
		t.Errorf("date: got %v, want 2024-01-15", row[ColDate])
	}
	if row[ColType] != "DEBIT" {
		t.Errorf("type: got %v, want DEBIT", row[ColType])
	}
	if row[ColCurrency] != "GBP" {
		t.Errorf("currency: got %v, want GBP", row[ColCurrency])
	}
	if bal, ok := row[ColBalance].(decimal.Decimal); !ok || !bal.Equal(dec("74.01")) {
		t.Errorf("balance: got %v, want 74.01", row[ColBalance])
	}
}

func TestMetroBankParser_NoTransactions(t *testing.T) {
	p := &MetroBankParser{}

	table, err := p.ParsePages([]string{"Metro Bank\nAccount Statement\nNothing to see"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !table.Empty() {
		t.Errorf("expected empty table, got %d rows", table.Len())
	}
}

func TestMetroBankParser_CreditDetection(t *testing.T) {
	p := &MetroBankParser{}

	// Opening 1,000.00; -50 → 950; +200 → 1,150; -30 → 1,120; +500 → 1,620
	pages := []string{
		`Date Description Money out Money in Balance
Opening balance 1,000.00
01/02/2024 CARD PAYMENT SHOP 50.00 950.00
02/02/2024 FASTER PAYMENT RECEIVED J DOE 200.00 1,150.00
03/02/2024 DIRECT DEBIT NETFLIX 30.00 1,120.00
04/02/2024 BANK CREDIT REFUND 500.00 1,620.00`,
	}

	info := p.parseStatement(pages)

	if len(info.Transactions) != 4 {
		t.Fatalf("transactions: got %d, want 4", len(info.Transactions))
	}

	tests := []struct {
		idx     int
		amount  string
		typ     string
		balance string
	}{
		{0, "50.00", "DEBIT", "950.00"},
		{1, "200.00", "CREDIT", "1150.00"},
		{2, "30.00", "DEBIT", "1120.00"},
		{3, "500.00", "CREDIT", "1620.00"},
	}

	for _, tt := range tests {
		txn := info.Transactions[tt.idx]
		if !txn.Amount.Equal(dec(tt.amount)) {
			t.Errorf("txn[%d].Amount: got %s, want %s", tt.idx, txn.Amount, tt.amount)
		}
		if txn.Type != tt.typ {
			t.Errorf("txn[%d].Type: got %q, want %q", tt.idx, txn.Type, tt.typ)
		}
		if !txn.Balance.Equal(dec(tt.balance)) {
			t.Errorf("txn[%d].Balance: got %s, want %s", tt.idx, txn.Balance, tt.balance)
		}
	}
}

func TestMetroBankParser_OpeningBalance(t *testing.T) {
	p := &MetroBankParser{}

	// First transaction is a credit, the opening balance is needed to classify it
	pages := []string{
		`Date Description Paid out Paid in Balance
Opening balance 5,000.00
01/01/2024 BANK CREDIT SALARY 2,500.00 7,500.00`,
	}

	info := p.parseStatement(pages)

	if len(info.Transactions) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(info.Transactions))
	}

	txn := info.Transactions[0]
	if txn.Type != "CREDIT" {
		t.Errorf("txn[0].Type: got %q, want %q", txn.Type, "CREDIT")
	}
	if !txn.Amount.Equal(dec("2500")) {
		t.Errorf("txn[0].Amount: got %s, want 2500.00", txn.Amount)
	}
}

func TestMetroBankParser_MoneyInMoneyOut(t *testing.T) {
	p := &MetroBankParser{}

	pages := []string{
		`Metro Bank Statement

Date Transaction details Money out Money in Balance
Balance brought forward 2,000.00
10/01/2024 CARD PAYMENT ASDA 35.50 1,964.50
11/01/2024 FASTER PAYMENT RECEIVED 1,000.00 2,964.50
12/01/2024 STANDING ORDER RENT 750.00 2,214.50
13/01/2024 INTEREST PAYMENT 5.25 2,219.75`,
	}

	info := p.parseStatement(pages)

	if len(info.Transactions) != 4 {
		t.Fatalf("transactions: got %d, want 4", len(info.Transactions))
	}

	tests := []struct {
		idx    int
		amount string
		typ    string
	}{
		{0, "35.50", "DEBIT"},
		{1, "1000.00", "CREDIT"},
		{2, "750.00", "DEBIT"},
		{3, "5.25", "CREDIT"},
	}

	for _, tt := range tests {
		txn := info.Transactions[tt.idx]
		if !txn.Amount.Equal(dec(tt.amount)) {
			t.Errorf("txn[%d].Amount: got %s, want %s", tt.idx, txn.Amount, tt.amount)
		}
		if txn.Type != tt.typ {
			t.Errorf("txn[%d].Type: got %q, want %q", tt.idx, txn.Type, tt.typ)
		}
	}
}

func TestClassifyByBalance(t *testing.T) {
	tests := []struct {
		name     string
		amt      string
		bal      string
		prevBal  string
		havePrev bool
		desc     string
		want     string
	}{
		{"debit with balance", "50.00", "950.00", "1000.00", true, "CARD PAYMENT", "DEBIT"},
		{"credit with balance", "200.00", "1200.00", "1000.00", true, "SALARY", "CREDIT"},
		{"credit despite debit keyword", "5.25", "1005.25", "1000.00", true, "INTEREST PAYMENT", "CREDIT"},
		{"no prev balance, debit desc", "50.00", "950.00", "0", false, "CARD PAYMENT TESCO", "DEBIT"},
		{"no prev balance, credit desc", "200.00", "1200.00", "0", false, "SALARY", "CREDIT"},
		{"no prev balance, transfer in", "500.00", "1500.00", "0", false, "TRANSFER IN FROM SAVINGS", "CREDIT"},
		{"balance does not reconcile", "10.00", "5000.00", "1000.00", true, "DIRECT DEBIT", "DEBIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyByBalance(dec(tt.amt), dec(tt.bal), dec(tt.prevBal), tt.havePrev, tt.desc)
			if got != tt.want {
				t.Errorf("classifyByBalance(%s, %s, %s, %v, %q) = %q, want %q",
					tt.amt, tt.bal, tt.prevBal, tt.havePrev, tt.desc, got, tt.want)
			}
		})
	}
}
