package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statementlens/internal/models"
)

// HSBCParser handles HSBC bank statement PDFs.
//
// HSBC statements typically have this layout:
//
//	Date | Payment type and details | Paid out | Paid in | Balance
//
// Date format: DD Mon YY (e.g., 15 Jan 24) or DD Mon YYYY
type HSBCParser struct{}

func (p *HSBCParser) BankName() string {
	return "HSBC"
}

// amountCellPattern matches a cell containing a single monetary amount.
var amountCellPattern = regexp.MustCompile(`^£?\s*([\d,]+\.\d{2})\s*$`)

const hsbcMonths = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`

// Line patterns tried in order. Each captures date, description, paid out,
// paid in and balance.
var hsbcLinePatterns = []struct {
	method string
	re     *regexp.Regexp
}{
	{"strict-text-date", regexp.MustCompile(
		`^(\d{1,2}\s+` + hsbcMonths + `\s+\d{2,4})\s+(.+?)\s{2,}` +
			`£?([\d,]+\.\d{2})?\s+£?([\d,]+\.\d{2})?\s+£?([\d,]+\.\d{2})\s*$`)},
	{"flexible-text-date", regexp.MustCompile(
		`^(\d{1,2}\s+` + hsbcMonths + `\s+\d{2,4})\s+(.+?)\s+` +
			`£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})\s*$`)},
	{"dash-date", regexp.MustCompile(
		`^(\d{1,2}-` + hsbcMonths + `-\d{2,4})\s+(.+?)\s+` +
			`£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})\s*$`)},
	{"slash-date", regexp.MustCompile(
		`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+` +
			`£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})\s*$`)},
}

var hsbcTxnSimple = regexp.MustCompile(
	`^(\d{1,2}\s+` + hsbcMonths + `\s+\d{2,4})\s+(.+?)\s+£?([\d,]+\.\d{2})\s*$`,
)

// trailingAmountsPattern finds every amount on a line.
var trailingAmountsPattern = regexp.MustCompile(`£?([\d,]+\.\d{2})`)

// ParsePages returns one movement row per transaction line.
func (p *HSBCParser) ParsePages(pages []string) (models.Table, error) {
	return ukTable(p.parseStatement(pages)), nil
}

func (p *HSBCParser) parseStatement(pages []string) *models.StatementInfo {
	info := &models.StatementInfo{
		Bank:     p.BankName(),
		Currency: "GBP",
	}

	allText := strings.Join(pages, "\n")

	info.AccountNumber = findAccountNumber(allText)
	info.SortCode = findSortCode(allText)
	info.AccountHolder = extractNameNearLabel(allText, []string{"Account holder", "Account name", "Mr ", "Mrs ", "Ms ", "Name"})
	info.PeriodStart, info.PeriodEnd = extractPeriod(allText)

	for _, page := range pages {
		info.Transactions = append(info.Transactions, p.parseLines(strings.Split(page, "\n"))...)
	}

	inferDebitCreditFromBalances(info.Transactions)

	return info
}

// normalizeLine cleans up common PDF extraction artifacts.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, "\u200B", "")
	line = strings.ReplaceAll(line, "\u00A0", " ")
	return strings.TrimSpace(line)
}

func (p *HSBCParser) parseLines(lines []string) []models.Transaction {
	var transactions []models.Transaction
	inTransactionSection := false

	for i := 0; i < len(lines); i++ {
		line := normalizeLine(lines[i])
		if line == "" {
			continue
		}

		hasDate := startsWithDate(line)

		if containsTransactionHeader(line) {
			inTransactionSection = true
			continue
		}
		if !inTransactionSection && !hasDate {
			continue
		}
		if hasDate {
			inTransactionSection = true
		}

		if txn, ok := p.matchLine(line); ok {
			transactions = append(transactions, txn)
			continue
		}

		// A dated line without amounts may have been split by the PDF;
		// join it with the next line and retry as tab-separated cells.
		if hasDate && i+1 < len(lines) {
			next := normalizeLine(lines[i+1])
			if next != "" && !startsWithDate(next) {
				if txn, ok := tryTabSeparated(line + "\t" + next); ok {
					txn.ParseMethod = "tab-separated-joined"
					transactions = append(transactions, txn)
					i++
					continue
				}
			}
		}

		if len(transactions) > 0 && !hasDate && !isSummaryLine(line) {
			cleaned := strings.TrimSpace(strings.ReplaceAll(line, "\t", " "))
			if !amountCellPattern.MatchString(cleaned) {
				last := &transactions[len(transactions)-1]
				last.Description += " " + cleaned
			}
		}
	}

	return transactions
}

// matchLine tries every single-line strategy in order of confidence.
func (p *HSBCParser) matchLine(line string) (models.Transaction, bool) {
	if strings.Contains(line, "\t") {
		if txn, ok := tryTabSeparated(line); ok {
			txn.ParseMethod = "tab-separated"
			return txn, true
		}
	}

	for _, lp := range hsbcLinePatterns {
		if txn, ok := tryPattern(lp.re, line); ok {
			txn.ParseMethod = lp.method
			return txn, true
		}
	}

	if m := hsbcTxnSimple.FindStringSubmatch(line); m != nil {
		txn := models.Transaction{
			Date:        m[1],
			Description: strings.TrimSpace(m[2]),
			Amount:      mustAmount(m[3]),
			Type:        typeFromDescription(m[2]),
			ParseMethod: "simple",
		}
		return txn, true
	}

	if txn, ok := tryGenericDateLine(line); ok {
		txn.ParseMethod = "generic-date-line"
		return txn, true
	}

	return models.Transaction{}, false
}

func typeFromDescription(desc string) string {
	if isDebitDescription(desc) {
		return models.TypeDebit
	}
	return models.TypeCredit
}

// tryTabSeparated handles lines whose cells are separated by tabs: the date
// opens the first cell, amounts are read from the right and everything in
// between is the description.
func tryTabSeparated(line string) (models.Transaction, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		return models.Transaction{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	date := extractDate(parts[0])
	if date == "" {
		return models.Transaction{}, false
	}
	dateIdx := strings.Index(parts[0], date)
	if dateIdx < 0 {
		return models.Transaction{}, false
	}

	var amounts []decimal.Decimal
	rightBoundary := len(parts)
	for i := len(parts) - 1; i >= 1; i-- {
		cell := parts[i]
		if cell == "" {
			continue
		}
		m := amountCellPattern.FindStringSubmatch(cell)
		if m == nil {
			break
		}
		amounts = append([]decimal.Decimal{mustAmount(m[1])}, amounts...)
		rightBoundary = i
	}
	if len(amounts) == 0 {
		return models.Transaction{}, false
	}

	var descParts []string
	if rest := strings.TrimSpace(parts[0][dateIdx+len(date):]); rest != "" {
		descParts = append(descParts, rest)
	}
	for i := 1; i < rightBoundary; i++ {
		cell := parts[i]
		// skip empty cells and stray PDF punctuation
		if cell == "" || cell == "." || cell == "-" || cell == "–" {
			continue
		}
		descParts = append(descParts, cell)
	}

	return assignAmounts(date, strings.Join(descParts, " "), amounts), true
}

// tryGenericDateLine handles lines that start with a date and end with
// amounts, whatever the separator style.
func tryGenericDateLine(line string) (models.Transaction, bool) {
	date := extractDate(line)
	if date == "" {
		return models.Transaction{}, false
	}
	dateIdx := strings.Index(line, date)
	if dateIdx < 0 {
		return models.Transaction{}, false
	}
	rest := strings.TrimSpace(line[dateIdx+len(date):])

	locs := trailingAmountsPattern.FindAllStringSubmatchIndex(rest, -1)
	if len(locs) == 0 {
		return models.Transaction{}, false
	}
	description := strings.TrimSpace(rest[:locs[0][0]])
	if description == "" {
		return models.Transaction{}, false
	}

	amounts := make([]decimal.Decimal, 0, len(locs))
	for _, loc := range locs {
		amounts = append(amounts, mustAmount(rest[loc[2]:loc[3]]))
	}

	return assignAmounts(date, description, amounts), true
}

// assignAmounts maps the trailing amounts of a line onto amount and balance.
// One amount is a bare balance, two are amount and balance, three are paid
// out, paid in and balance.
func assignAmounts(date, description string, amounts []decimal.Decimal) models.Transaction {
	txn := models.Transaction{Date: date, Description: description}

	switch len(amounts) {
	case 1:
		txn.Balance = amounts[0]
		txn.Type = typeFromDescription(description)
	case 2:
		txn.Amount = amounts[0]
		txn.Balance = amounts[1]
		txn.Type = typeFromDescription(description)
	case 3:
		txn.Balance = amounts[2]
		switch {
		case amounts[0].IsPositive() && amounts[1].IsZero():
			txn.Amount = amounts[0]
			txn.Type = models.TypeDebit
		case amounts[1].IsPositive():
			txn.Amount = amounts[1]
			txn.Type = models.TypeCredit
		default:
			txn.Amount = amounts[0]
			txn.Type = models.TypeDebit
		}
	default:
		txn.Balance = amounts[len(amounts)-1]
		txn.Amount = amounts[len(amounts)-2]
		txn.Type = typeFromDescription(description)
	}

	return txn
}

func tryPattern(pat *regexp.Regexp, line string) (models.Transaction, bool) {
	m := pat.FindStringSubmatch(line)
	if m == nil {
		return models.Transaction{}, false
	}

	txn := models.Transaction{
		Date:        m[1],
		Description: strings.TrimSpace(m[2]),
	}

	paidOut := strings.TrimSpace(m[3])
	paidIn := strings.TrimSpace(m[4])
	balance := strings.TrimSpace(m[5])

	if paidOut != "" {
		txn.Amount = mustAmount(paidOut)
		txn.Type = models.TypeDebit
	} else if paidIn != "" {
		txn.Amount = mustAmount(paidIn)
		txn.Type = models.TypeCredit
	}
	if balance != "" {
		txn.Balance = mustAmount(balance)
	}

	return txn, true
}

// inferDebitCreditFromBalances uses balance progression to determine
// whether each transaction is a debit or credit. Accounting math beats
// keyword matching whenever both balances are known.
func inferDebitCreditFromBalances(txns []models.Transaction) {
	for i := 1; i < len(txns); i++ {
		prev := txns[i-1]
		curr := &txns[i]

		if prev.Balance.IsZero() || curr.Balance.IsZero() || curr.Amount.IsZero() {
			continue
		}

		switch curr.Balance.Cmp(prev.Balance) {
		case -1:
			curr.Type = models.TypeDebit
		case 1:
			curr.Type = models.TypeCredit
		}
	}
}
