package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statementlens/internal/models"
)

// BarclaysParser handles Barclays bank statement PDFs.
//
// Barclays statements come in two layouts:
//
// Personal: Date | Description | Money out | Money in | Balance
//
//	15/01/2024  CARD PAYMENT TO TESCO STORES 2602  25.99  1,234.56
//
// Business: arrow-separated columns and short "D Mon" dates. The year comes
// from the statement period.
//
//	5 Dec → Direct Debit to Stripe → 58.80 → 9,397.88
type BarclaysParser struct{}

func (p *BarclaysParser) BankName() string {
	return "Barclays"
}

const barclaysArrow = "→"

var (
	barclaysSlashLine = regexp.MustCompile(
		`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+` +
			`£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})\s*$`)
	barclaysTextLine = regexp.MustCompile(
		`^(\d{1,2}\s+` + hsbcMonths + `\s+\d{2,4})\s+` +
			`(.+?)\s+£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})\s*$`)
	// DD Mon  Description  Amount  Balance
	barclaysCompactLine = regexp.MustCompile(
		`^(\d{1,2}\s+` + hsbcMonths + `)\s+(.+?)\s+£?([\d,]+\.\d{2})\s+£?([\d,]+\.\d{2})\s*$`)
	barclaysSimpleLine = regexp.MustCompile(
		`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+£?([\d,]+\.\d{2})\s*$`)

	barclaysShortDate = regexp.MustCompile(
		`(?i)^(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec))(?:\s|→|$)`)
	barclaysAmount = regexp.MustCompile(`£?([\d,]+\.\d{2})`)
)

var (
	barclaysBalanceKeywords = []string{
		"start balance", "balance brought forward", "balance carried forward", "end balance",
	}
	barclaysCreditKeywords = []string{
		"direct credit", "credit from", "bgc ", "bacs ", "refund", "interest paid",
		"transfer from", "faster payment",
	}
	barclaysFXKeywords = []string{
		"exchange rate", "non-sterling transaction fee", "final gbp amount",
	}
	barclaysSkipKeywords = []string{
		"at a glance", "your deposit is eligible", "compensation scheme",
		"your business current account", "issued on", "swiftbic", "iban gb", "anything wrong",
	}
	barclaysFooterKeywords = []string{
		"barclays bank", "registered in", "authorised by", "financial conduct",
		"please check", "if you find", "prudential regulation",
	}
)

func containsAny(line string, keywords []string) bool {
	lower := strings.ToLower(line)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ParsePages returns one movement row per transaction line.
func (p *BarclaysParser) ParsePages(pages []string) (models.Table, error) {
	return ukTable(p.parseStatement(pages)), nil
}

func (p *BarclaysParser) parseStatement(pages []string) *models.StatementInfo {
	info := &models.StatementInfo{
		Bank:     p.BankName(),
		Currency: "GBP",
	}

	allText := strings.Join(pages, "\n")

	info.AccountNumber = findAccountNumber(allText)
	info.SortCode = findSortCode(allText)
	info.AccountHolder = barclaysHolder(allText)
	info.PeriodStart, info.PeriodEnd = extractPeriod(allText)

	var opening decimal.Decimal
	haveOpening := false
	arrows := strings.Contains(allText, barclaysArrow)
	for _, page := range pages {
		lines := strings.Split(page, "\n")
		if !arrows {
			info.Transactions = append(info.Transactions, p.parseLines(lines)...)
			continue
		}
		txns, bal, ok := p.parseArrowLines(lines)
		if ok && !haveOpening {
			opening, haveOpening = bal, true
		}
		info.Transactions = append(info.Transactions, txns...)
	}

	for i := range info.Transactions {
		info.Transactions[i].Date = withPeriodYear(info.Transactions[i].Date, info.PeriodStart, info.PeriodEnd)
	}
	if haveOpening && len(info.Transactions) > 0 {
		first := &info.Transactions[0]
		if !first.Balance.IsZero() {
			first.Type = classifyByBalance(first.Amount, first.Balance, opening, true, first.Description)
		}
	}
	inferDebitCreditFromBalances(info.Transactions)

	return info
}

// parseLines handles the personal layout.
func (p *BarclaysParser) parseLines(lines []string) []models.Transaction {
	var transactions []models.Transaction
	inTransactionSection := false

	for _, raw := range lines {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}

		if barclaysHeader(line) {
			inTransactionSection = true
			continue
		}
		hasDate := startsWithDate(line)
		if !inTransactionSection && !hasDate {
			continue
		}
		inTransactionSection = true

		if txn, ok := tryPattern(barclaysSlashLine, line); ok {
			txn.ParseMethod = "slash-date"
			transactions = append(transactions, txn)
			continue
		}
		if txn, ok := tryPattern(barclaysTextLine, line); ok {
			txn.ParseMethod = "text-date"
			transactions = append(transactions, txn)
			continue
		}
		if m := barclaysCompactLine.FindStringSubmatch(line); m != nil {
			transactions = append(transactions, models.Transaction{
				Date:        m[1],
				Description: strings.TrimSpace(m[2]),
				Amount:      mustAmount(m[3]),
				Balance:     mustAmount(m[4]),
				Type:        typeFromDescription(m[2]),
				ParseMethod: "compact",
			})
			continue
		}
		if m := barclaysSimpleLine.FindStringSubmatch(line); m != nil {
			transactions = append(transactions, models.Transaction{
				Date:        m[1],
				Description: strings.TrimSpace(m[2]),
				Amount:      mustAmount(m[3]),
				Type:        typeFromDescription(m[2]),
				ParseMethod: "simple",
			})
			continue
		}

		if len(transactions) > 0 && !hasDate && !isSummaryLine(line) && !containsAny(line, barclaysFooterKeywords) {
			last := &transactions[len(transactions)-1]
			last.Description += " " + line
		}
	}

	return transactions
}

// parseArrowLines handles the business layout. Dateless lines inherit the
// last date seen. It also returns the opening balance when the page has one.
//
//	4 Dec Start Balance → 9,856.68
//	On-Line Banking Bill Payment to → 400.00 → 9,456.68
//	Direct Credit From Antalis Limited → 10,500.00 19,749.38
//	Ref: Antalis Limited
func (p *BarclaysParser) parseArrowLines(lines []string) ([]models.Transaction, decimal.Decimal, bool) {
	var (
		transactions []models.Transaction
		opening      decimal.Decimal
		haveOpening  bool
		inSection    bool
		currentDate  string
	)

	appendToLast := func(line string) {
		if len(transactions) == 0 {
			return
		}
		text := strings.TrimSpace(strings.ReplaceAll(line, barclaysArrow, ""))
		if text == "" || containsAny(text, barclaysFooterKeywords) {
			return
		}
		last := &transactions[len(transactions)-1]
		last.Description += " " + text
	}

	for _, raw := range lines {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		if barclaysHeader(line) {
			inSection = true
			continue
		}
		if containsAny(line, barclaysFooterKeywords) || containsAny(line, barclaysSkipKeywords) {
			continue
		}

		if containsAny(line, barclaysBalanceKeywords) {
			if d := shortDate(line); d != "" {
				currentDate = d
				inSection = true
			}
			lower := strings.ToLower(line)
			opens := strings.Contains(lower, "start balance") || strings.Contains(lower, "balance brought forward")
			if opens && !haveOpening {
				if amounts := barclaysAmount.FindAllStringSubmatch(line, -1); len(amounts) > 0 {
					opening, haveOpening = mustAmount(amounts[len(amounts)-1][1]), true
				}
			}
			continue
		}
		if isSummaryLine(line) {
			continue
		}
		if containsAny(line, barclaysFXKeywords) {
			appendToLast(line)
			continue
		}

		sd := shortDate(line)
		if sd != "" {
			currentDate = sd
			inSection = true
		} else if !inSection && startsWithDate(line) {
			currentDate = extractDate(line)
			inSection = true
		}
		if !inSection {
			continue
		}

		parts := strings.Split(line, barclaysArrow)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if !arrowHasAmountColumn(parts) {
			appendToLast(line)
			continue
		}
		if txn, ok := arrowTransaction(parts, sd, currentDate); ok {
			transactions = append(transactions, txn)
		}
	}

	return transactions, opening, haveOpening
}

func barclaysHeader(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "date") &&
		(strings.Contains(lower, "money out") || strings.Contains(lower, "money in") ||
			strings.Contains(lower, "description") || strings.Contains(lower, "details")) {
		return true
	}
	return containsTransactionHeader(line)
}

func shortDate(line string) string {
	if m := barclaysShortDate.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// arrowHasAmountColumn reports whether a column after the first holds only
// amounts. Reference and FX lines carry text next to their numbers.
func arrowHasAmountColumn(parts []string) bool {
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts[1:] {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		all := true
		for _, f := range fields {
			if !barclaysAmount.MatchString(f) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func arrowTransaction(parts []string, lineDate, currentDate string) (models.Transaction, bool) {
	desc := arrowDescription(parts, lineDate)
	if desc == "" {
		return models.Transaction{}, false
	}

	var amounts []decimal.Decimal
	for _, part := range parts[1:] {
		for _, f := range strings.Fields(part) {
			if m := barclaysAmount.FindStringSubmatch(f); m != nil {
				if a := mustAmount(m[1]); a.IsPositive() {
					amounts = append(amounts, a)
				}
			}
		}
	}
	if len(amounts) == 0 {
		return models.Transaction{}, false
	}

	txn := models.Transaction{
		Date:        currentDate,
		Description: desc,
		Amount:      amounts[0],
		ParseMethod: "arrow",
	}
	if len(amounts) >= 2 {
		txn.Balance = amounts[len(amounts)-1]
	}

	switch {
	case isDebitDescription(desc):
		txn.Type = models.TypeDebit
	case containsAny(desc, barclaysCreditKeywords):
		txn.Type = models.TypeCredit
	default:
		txn.Type = arrowType(parts)
	}
	return txn, true
}

// arrowDescription takes the text before the first amount, skipping the
// leading date. "5 Dec → Direct Debit → 58.80" keeps its text in the second
// column.
func arrowDescription(parts []string, lineDate string) string {
	first := parts[0]
	if lineDate != "" {
		if idx := strings.Index(first, lineDate); idx >= 0 {
			first = strings.TrimSpace(first[idx+len(lineDate):])
		}
	}
	if first == "" && len(parts) > 1 {
		return collapseSpaces(barclaysAmount.ReplaceAllString(parts[1], ""))
	}
	if loc := barclaysAmount.FindStringIndex(first); loc != nil {
		first = first[:loc[0]]
	}
	return collapseSpaces(first)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.Trim(s, barclaysArrow+" ")), " ")
}

// arrowType reads the direction from the column layout: money out sits in
// its own column before the balance ("→ 400.00 → 9,456.68") while money in
// shares a column with it ("→ 10,500.00 19,749.38").
func arrowType(parts []string) string {
	for i := len(parts) - 1; i >= 1; i-- {
		if parts[i] == "" {
			continue
		}
		if len(barclaysAmount.FindAllString(parts[i], -1)) >= 2 {
			return models.TypeCredit
		}
		break
	}
	return models.TypeDebit
}

// withPeriodYear turns a short "D Mon" date into an ISO date using the
// statement period. Months before the period start belong to the closing
// year. Other dates are returned unchanged.
func withPeriodYear(date, periodStart, periodEnd string) string {
	if periodStart == "" || barclaysShortDate.FindStringSubmatch(date+" ") == nil {
		return date
	}
	start, err := time.Parse("2006-01-02", periodStart)
	if err != nil {
		return date
	}
	md, err := time.Parse("2 Jan", strings.Join(strings.Fields(date), " "))
	if err != nil {
		return date
	}
	d := time.Date(start.Year(), md.Month(), md.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(start) {
		if end, err := time.Parse("2006-01-02", periodEnd); err == nil && end.Year() > start.Year() {
			d = d.AddDate(end.Year()-start.Year(), 0, 0)
		}
	}
	return d.Format("2006-01-02")
}

// barclaysHolder finds the holder next to a label, or on the line after the
// sort code or account number.
func barclaysHolder(text string) string {
	if name := extractNameNearLabel(text, []string{"Account holder", "Account name", "Mr ", "Mrs ", "Ms ", "Miss "}); name != "" {
		return name
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !containsAny(line, []string{"sort code", "account number", "account no"}) || i+1 >= len(lines) {
			continue
		}
		candidate := strings.TrimSpace(lines[i+1])
		if candidate != "" && !strings.ContainsAny(candidate, "0123456789") {
			return candidate
		}
	}
	return ""
}
