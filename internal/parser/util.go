package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statementlens/internal/models"
)

// Common date patterns found in UK bank statements.
var (
	// DD/MM/YYYY or DD/MM/YY
	datePatternSlash = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`)
	// DD Mon YYYY (e.g., 15 Jan 2024)
	datePatternText = regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})\b`)
	// DD-Mon-YYYY or DD-Mon-YY
	datePatternDash = regexp.MustCompile(`(?i)\b(\d{1,2}-(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*-\d{2,4})\b`)
)

// parseAmount converts a string like "1,234.56" or "-£1,234.56" to an exact
// decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(
		"£", "",
		"$", "",
		"€", "",
		",", "",
		" ", "",
		"\u00a0", "",
	).Replace(s)

	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(s)
}

// mustAmount is parseAmount for strings already matched by an amount regex.
func mustAmount(s string) decimal.Decimal {
	d, err := parseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// startsWithDate checks if a line begins with a date pattern.
func startsWithDate(line string) bool {
	return extractDate(line) != ""
}

// extractDate returns the first date found at the start of a line.
func extractDate(line string) string {
	line = strings.TrimSpace(line)
	for _, pat := range []*regexp.Regexp{datePatternSlash, datePatternText, datePatternDash} {
		loc := pat.FindStringIndex(line)
		if loc != nil && loc[0] < 3 {
			return line[loc[0]:loc[1]]
		}
	}
	return ""
}

var ukDateLayouts = []string{
	"02/01/2006", "2/1/2006", "02/01/06", "2/1/06",
	"02 Jan 2006", "2 Jan 2006", "02 Jan 06", "2 Jan 06",
	"02-Jan-2006", "2-Jan-2006", "02-Jan-06", "2-Jan-06",
}

// isoDate rewrites a day-first UK date as YYYY-MM-DD. Dates it cannot read
// are returned unchanged.
func isoDate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	// Long month names ("15 January 2024") are cut down to three letters.
	if parts := strings.Fields(s); len(parts) == 3 && len(parts[1]) > 3 {
		parts[1] = parts[1][:3]
		s = strings.Join(parts, " ")
	}
	for _, layout := range ukDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// extractAccountNumber finds typical UK bank account numbers (8 digits).
var accountNumberPattern = regexp.MustCompile(`\b(\d{8})\b`)

// extractSortCode finds typical UK sort codes (XX-XX-XX).
var sortCodePattern = regexp.MustCompile(`\b(\d{2}-\d{2}-\d{2})\b`)

func findAccountNumber(text string) string {
	return accountNumberPattern.FindString(text)
}

func findSortCode(text string) string {
	return sortCodePattern.FindString(text)
}

// Columns produced by the UK current-account parsers.
const (
	ColDate        = "date"
	ColDescription = "description"
	ColType        = "type"
	ColAmount      = "amount"
	ColBalance     = "balance"
	ColAccount     = "account"
	ColCurrency    = "currency"
	ColHolder      = "account_holder"
	ColPeriodStart = "period_start"
	ColPeriodEnd   = "period_end"
	ColParseMethod = "parse_method"
)

// ukColumns is the movement schema shared by the UK parsers.
var ukColumns = []string{
	ColDate, ColDescription, ColType, ColAmount, ColBalance, ColAccount, ColCurrency,
	ColHolder, ColPeriodStart, ColPeriodEnd, ColParseMethod,
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ukTable converts parsed transactions into movement rows. A zero balance
// means the line carried no balance and is left empty. Statement-level
// fields (holder, period) repeat on every row.
func ukTable(info *models.StatementInfo) models.Table {
	t := models.NewTable(ukColumns...)
	account := info.AccountNumber
	if info.SortCode != "" && account != "" {
		account = info.SortCode + " " + account
	}
	for _, txn := range info.Transactions {
		row := models.Row{
			ColDate:        isoDate(txn.Date),
			ColDescription: txn.Description,
			ColType:        txn.Type,
			ColAmount:      txn.Amount,
			ColBalance:     nil,
			ColAccount:     account,
			ColCurrency:    info.Currency,
			ColHolder:      orNil(info.AccountHolder),
			ColPeriodStart: orNil(info.PeriodStart),
			ColPeriodEnd:   orNil(info.PeriodEnd),
			ColParseMethod: orNil(txn.ParseMethod),
		}
		if !txn.Balance.IsZero() {
			row[ColBalance] = txn.Balance
		}
		t.Append(row)
	}
	return t
}
