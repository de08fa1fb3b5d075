package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statementlens/internal/models"
)

// MetroBankParser handles Metro Bank statement PDFs.
//
// Metro Bank statements typically have this layout:
//
//	Date | Transaction type | Description | Paid out | Paid in | Balance
//
// Date format: DD/MM/YYYY
// Example line: "15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56"
type MetroBankParser struct{}

func (p *MetroBankParser) BankName() string {
	return "Metro Bank"
}

// Metro Bank transaction line pattern:
// DATE  DESCRIPTION  [PAID_OUT]  [PAID_IN]  BALANCE
var metroTxnPattern = regexp.MustCompile(
	`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)` +
		`\s+([\d,]+\.\d{2})?\s*([\d,]+\.\d{2})?\s+([\d,]+\.\d{2})\s*$`,
)

// Simpler pattern for lines with fewer columns
var metroTxnSimple = regexp.MustCompile(
	`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+([\d,]+\.\d{2})\s*$`,
)

// ParsePages returns one movement row per transaction line.
func (p *MetroBankParser) ParsePages(pages []string) (models.Table, error) {
	return ukTable(p.parseStatement(pages)), nil
}

func (p *MetroBankParser) parseStatement(pages []string) *models.StatementInfo {
	info := &models.StatementInfo{
		Bank:     p.BankName(),
		Currency: "GBP",
	}

	allText := strings.Join(pages, "\n")

	info.AccountNumber = findAccountNumber(allText)
	info.SortCode = findSortCode(allText)
	info.AccountHolder = extractNameNearLabel(allText, []string{"Account holder", "Account name", "Mr ", "Mrs ", "Ms "})
	info.PeriodStart, info.PeriodEnd = extractPeriod(allText)

	for _, page := range pages {
		lines := strings.Split(page, "\n")
		info.Transactions = append(info.Transactions, p.parseLines(lines)...)
	}

	return info
}

func (p *MetroBankParser) parseLines(lines []string) []models.Transaction {
	var transactions []models.Transaction
	inTransactionSection := false
	var lastBalance decimal.Decimal
	haveBalance := false

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		// Opening balance lines are summary lines but seed the running balance
		if bal, ok := extractOpeningBalance(line); ok {
			lastBalance, haveBalance = bal, true
			continue
		}

		if containsTransactionHeader(line) {
			inTransactionSection = true
			continue
		}

		if !inTransactionSection && !startsWithDate(line) {
			continue
		}

		if startsWithDate(line) {
			inTransactionSection = true
		}

		if m := metroTxnPattern.FindStringSubmatch(line); m != nil {
			txn := models.Transaction{
				Date:        m[1],
				Description: strings.TrimSpace(m[2]),
				ParseMethod: "full",
			}

			paidOut := strings.TrimSpace(m[3])
			paidIn := strings.TrimSpace(m[4])
			balance := strings.TrimSpace(m[5])

			switch {
			case paidOut != "" && paidIn != "":
				// All three amount columns present, paid out is unambiguous
				txn.Amount = mustAmount(paidOut)
				txn.Type = models.TypeDebit
				txn.Balance = mustAmount(balance)
			case paidOut != "":
				// One amount plus balance. The regex always captures the
				// first number as paid out, so the running balance decides.
				txn.Amount = mustAmount(paidOut)
				txn.Balance = mustAmount(balance)
				txn.Type = classifyByBalance(txn.Amount, txn.Balance, lastBalance, haveBalance, txn.Description)
			case paidIn != "":
				txn.Amount = mustAmount(paidIn)
				txn.Type = models.TypeCredit
				txn.Balance = mustAmount(balance)
			}

			if !txn.Balance.IsZero() {
				lastBalance, haveBalance = txn.Balance, true
			}

			transactions = append(transactions, txn)
			continue
		}

		if m := metroTxnSimple.FindStringSubmatch(line); m != nil {
			txn := models.Transaction{
				Date:        m[1],
				Description: strings.TrimSpace(m[2]),
				Amount:      mustAmount(m[3]),
				ParseMethod: "simple",
			}
			if isDebitDescription(txn.Description) {
				txn.Type = models.TypeDebit
			} else {
				txn.Type = models.TypeCredit
			}
			transactions = append(transactions, txn)
			continue
		}

		// Multi-line descriptions continue on lines without a date
		if len(transactions) > 0 && !startsWithDate(line) && line != "" && inTransactionSection {
			if !isSummaryLine(line) {
				last := &transactions[len(transactions)-1]
				last.Description += " " + line
			}
		}
	}

	return transactions
}

// classifyByBalance determines whether a transaction is DEBIT or CREDIT
// by comparing the amount and current balance against the previous balance.
// Falls back to description-based heuristic when balance info is unavailable.
func classifyByBalance(amt, bal, prevBal decimal.Decimal, havePrev bool, desc string) string {
	if havePrev {
		debit := prevBal.Sub(amt).Equal(bal)
		credit := prevBal.Add(amt).Equal(bal)
		if debit && !credit {
			return models.TypeDebit
		}
		if credit && !debit {
			return models.TypeCredit
		}
	}

	if isDebitDescription(desc) {
		return models.TypeDebit
	}
	return models.TypeCredit
}

// extractOpeningBalance looks for opening/brought-forward balance lines
// and returns the balance amount.
func extractOpeningBalance(line string) (decimal.Decimal, bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "opening balance") &&
		!strings.Contains(lower, "brought forward") {
		return decimal.Zero, false
	}

	amounts := metroAmountPattern.FindAllString(line, -1)
	if len(amounts) == 0 {
		return decimal.Zero, false
	}
	bal, err := parseAmount(amounts[len(amounts)-1])
	if err != nil {
		return decimal.Zero, false
	}
	return bal, true
}

// metroAmountPattern matches numbers like 1,234.56 or 25.99
var metroAmountPattern = regexp.MustCompile(`[\d,]+\.\d{2}`)

func containsTransactionHeader(line string) bool {
	lower := strings.ToLower(line)
	// HSBC spreads header characters ("Pay m e nt t y pe"), so "paid" doubles
	// as a description marker.
	return strings.Contains(lower, "date") &&
		(strings.Contains(lower, "description") || strings.Contains(lower, "transaction") ||
			strings.Contains(lower, "details") || strings.Contains(lower, "paid")) &&
		(strings.Contains(lower, "amount") || strings.Contains(lower, "paid") ||
			strings.Contains(lower, "balance") || strings.Contains(lower, "money"))
}

var debitKeywords = []string{
	"card payment", "direct debit", "debit", "payment", "withdrawal",
	"transfer out", "standing order", "dd ", "pos ", "atm ",
	"purchase", "fee", "charge",
}

func isDebitDescription(desc string) bool {
	lower := strings.ToLower(desc)
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var summaryKeywords = []string{
	"opening balance", "closing balance", "total paid in",
	"total paid out", "total payments", "total receipts",
	"statement period", "page ", "continued",
}

func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func extractNameNearLabel(text string, labels []string) string {
	for _, line := range strings.Split(text, "\n") {
		for _, label := range labels {
			idx := strings.Index(line, label)
			if idx < 0 {
				continue
			}
			rest := strings.TrimSpace(line[idx+len(label):])
			rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			if rest != "" {
				// Stop at a wide gap, which usually starts the next field
				parts := strings.Split(rest, "  ")
				return strings.TrimSpace(parts[0])
			}
		}
	}
	return ""
}

// extractPeriod finds the statement period on a line mentioning "period" and
// returns its bounds as ISO dates.
func extractPeriod(text string) (start, end string) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), "period") {
			continue
		}
		for _, pat := range []*regexp.Regexp{datePatternSlash, datePatternText} {
			if dates := pat.FindAllString(line, 2); len(dates) == 2 {
				return isoDate(dates[0]), isoDate(dates[1])
			}
		}
	}
	return "", ""
}
