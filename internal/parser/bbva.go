package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statementlens/internal/models"
)

// Columns produced by the BBVA parsers.
const (
	ColFechaOperacion   = "fecha_operacion"
	ColFechaLiquidacion = "fecha_liquidacion"
	ColFechaCargo       = "fecha_cargo"
	ColDescripcion      = "descripcion"
	ColReferencia       = "referencia"
	ColCargo            = "cargo"
	ColAbono            = "abono"
	ColSaldoOperacion   = "saldo_operacion"
	ColSaldoLiquidacion = "saldo_liquidacion"
	ColImporteCargo     = "importe_cargo"
	ColImporteAbono     = "importe_abono"
	ColCuenta           = "cuenta"
	ColMoneda           = "moneda"
)

var spanishMonths = map[string]int{
	"ENE": 1, "FEB": 2, "MAR": 3, "ABR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AGO": 8, "SEP": 9, "SET": 9, "OCT": 10, "NOV": 11, "DIC": 12,
}

// spanishDate builds an ISO date from a day, a Spanish month abbreviation
// and a year. ok is false when the month is unknown or the day is invalid.
func spanishDate(day, month string, year int) (string, bool) {
	m, ok := spanishMonths[strings.ToUpper(month)]
	if !ok {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, m, d), true
}

// statementCurrency returns USD for dollar accounts and MXN otherwise.
func statementCurrency(text string) string {
	up := strings.ToUpper(text)
	if strings.Contains(up, "DOLARES") || strings.Contains(up, "DÓLARES") || strings.Contains(up, "MONEDA: USD") {
		return "USD"
	}
	return "MXN"
}

// BBVADebitParser handles BBVA México debit account statements (Libretón and
// similar). Movement lines look like
//
//	02/ENE 03/ENE SPEI RECIBIDO BANORTE 1,500.00 11,500.00 11,500.00
//
// with operation and settlement dates, the description, the movement amount
// and optionally the operation and settlement balances. The statement period
// ("DEL 01/01/2024 AL 31/01/2024") supplies the year.
type BBVADebitParser struct{}

func (p *BBVADebitParser) BankName() string {
	return "BBVA"
}

var (
	bbvaDebitLine = regexp.MustCompile(
		`^(\d{2})/([A-Za-z]{3})\s+(\d{2})/([A-Za-z]{3})\s+(.+?)\s+([\d,]+\.\d{2})` +
			`(?:\s+([\d,]+\.\d{2}))?(?:\s+([\d,]+\.\d{2}))?\s*$`)
	bbvaPeriod     = regexp.MustCompile(`(?i)\bDEL\s+(\d{2})/(\d{2})/(\d{4})\s+AL\s+(\d{2})/(\d{2})/(\d{4})`)
	bbvaAccount    = regexp.MustCompile(`(?i)no\.?\s*de\s*cuenta\s*:?\s*(\d[\d ]{5,}\d)`)
	bbvaReference  = regexp.MustCompile(`(?i)^ref(?:erencia)?\.?\s*:?\s*(.+)$`)
	bbvaOpeningBal = regexp.MustCompile(`(?i)saldo\s+(?:anterior|inicial)\s*:?\s*\$?\s*([\d,]+\.\d{2})`)
)

var bbvaAbonoKeywords = []string{
	"ABONO", "DEPOSITO", "DEPÓSITO", "RECIBIDO", "DEVOLUCION", "DEVOLUCIÓN",
	"INTERESES GANADOS", "NOMINA", "NÓMINA",
}

var bbvaStopKeywords = []string{
	"TOTAL DE MOVIMIENTOS", "TOTAL IMPORTE", "SALDO FINAL", "SALDO PROMEDIO",
	"ESTE DOCUMENTO", "PAGINA", "PÁGINA", "FECHA OPER", "DETALLE DE MOVIMIENTOS",
}

type statementPeriod struct {
	fromMonth, fromYear int
	toYear              int
	ok                  bool
}

func findPeriod(text string) statementPeriod {
	m := bbvaPeriod.FindStringSubmatch(text)
	if m == nil {
		return statementPeriod{}
	}
	fm, _ := strconv.Atoi(m[2])
	fy, _ := strconv.Atoi(m[3])
	ty, _ := strconv.Atoi(m[6])
	return statementPeriod{fromMonth: fm, fromYear: fy, toYear: ty, ok: true}
}

// yearFor picks the year of a movement month. Periods spanning New Year put
// months before the opening month into the closing year.
func (sp statementPeriod) yearFor(month string) int {
	m := spanishMonths[strings.ToUpper(month)]
	if sp.fromYear != sp.toYear && m < sp.fromMonth {
		return sp.toYear
	}
	return sp.fromYear
}

func (sp statementPeriod) date(day, month string) string {
	if sp.ok {
		if iso, ok := spanishDate(day, month, sp.yearFor(month)); ok {
			return iso
		}
	}
	return day + "/" + strings.ToUpper(month)
}

// ParsePages returns one row per movement line.
func (p *BBVADebitParser) ParsePages(pages []string) (models.Table, error) {
	allText := strings.Join(pages, "\n")
	period := findPeriod(allText)
	account := ""
	if m := bbvaAccount.FindStringSubmatch(allText); m != nil {
		account = strings.ReplaceAll(m[1], " ", "")
	}
	currency := statementCurrency(allText)

	table := models.NewTable(
		ColFechaOperacion, ColFechaLiquidacion, ColDescripcion, ColReferencia,
		ColCargo, ColAbono, ColSaldoOperacion, ColSaldoLiquidacion,
		ColCuenta, ColMoneda,
	)

	var last models.Row
	var balance decimal.Decimal
	haveBalance := false

	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			line := normalizeLine(raw)
			if line == "" {
				continue
			}

			if m := bbvaOpeningBal.FindStringSubmatch(line); m != nil && last == nil {
				balance, haveBalance = mustAmount(m[1]), true
				continue
			}

			m := bbvaDebitLine.FindStringSubmatch(line)
			if m == nil {
				if last != nil {
					last = p.continuation(last, line)
				}
				continue
			}

			amount := mustAmount(m[6])
			row := models.Row{
				ColFechaOperacion:   period.date(m[1], m[2]),
				ColFechaLiquidacion: period.date(m[3], m[4]),
				ColDescripcion:      strings.TrimSpace(m[5]),
				ColReferencia:       nil,
				ColCargo:            nil,
				ColAbono:            nil,
				ColSaldoOperacion:   nil,
				ColSaldoLiquidacion: nil,
				ColCuenta:           account,
				ColMoneda:           currency,
			}

			var saldo decimal.Decimal
			hasSaldo := m[7] != ""
			if hasSaldo {
				saldo = mustAmount(m[7])
				row[ColSaldoOperacion] = saldo
				row[ColSaldoLiquidacion] = saldo
			}
			if m[8] != "" {
				row[ColSaldoLiquidacion] = mustAmount(m[8])
			}

			if p.isAbono(amount, saldo, hasSaldo, balance, haveBalance, m[5]) {
				row[ColAbono] = amount
			} else {
				row[ColCargo] = amount
			}

			if hasSaldo {
				balance, haveBalance = saldo, true
			}

			table.Append(row)
			last = row
		}
	}

	return table, nil
}

// isAbono decides the movement direction from the balance progression when
// both balances are known and from the description otherwise.
func (p *BBVADebitParser) isAbono(amount, saldo decimal.Decimal, hasSaldo bool, prev decimal.Decimal, havePrev bool, desc string) bool {
	if hasSaldo && havePrev {
		if prev.Add(amount).Equal(saldo) {
			return true
		}
		if prev.Sub(amount).Equal(saldo) {
			return false
		}
	}
	up := strings.ToUpper(desc)
	for _, kw := range bbvaAbonoKeywords {
		if strings.Contains(up, kw) {
			return true
		}
	}
	return false
}

// continuation attaches a wrapped line to the previous movement. It returns
// nil once a footer or summary line closes the movement block.
func (p *BBVADebitParser) continuation(last models.Row, line string) models.Row {
	up := strings.ToUpper(line)
	for _, kw := range bbvaStopKeywords {
		if strings.Contains(up, kw) {
			return nil
		}
	}
	if m := bbvaReference.FindStringSubmatch(line); m != nil {
		ref := strings.TrimSpace(m[1])
		if prev, ok := last[ColReferencia].(string); ok && prev != "" {
			ref = prev + " " + ref
		}
		last[ColReferencia] = ref
		return last
	}
	last[ColDescripcion] = fmt.Sprintf("%s %s", last[ColDescripcion], line)
	return last
}

// BBVACreditCardParser handles BBVA México credit card statements. Movement
// lines carry the operation date, the posting date, the description and a
// signed amount:
//
//	15-ene-2024 16-ene-2024 AMAZON MX + $1,234.56
//	20-ene-2024 20-ene-2024 PAGO TARJETA DE CREDITO - $3,000.00
//
// A plus sign (or no sign) is a charge; a minus sign is a payment or refund.
type BBVACreditCardParser struct{}

func (p *BBVACreditCardParser) BankName() string {
	return "BBVA"
}

var (
	bbvaCardLine = regexp.MustCompile(
		`^(\d{2})-([A-Za-z]{3})-(\d{4})\s+(\d{2})-([A-Za-z]{3})-(\d{4})\s+(.+?)\s+([+-])?\s*\$?\s*([\d,]+\.\d{2})\s*$`)
	bbvaCardNumber = regexp.MustCompile(`(?i)n[uú]mero\s+de\s+tarjeta\s*:?\s*([\dX*][\dX* ]{6,}[\dX*])`)
)

// ParsePages returns one row per movement line.
func (p *BBVACreditCardParser) ParsePages(pages []string) (models.Table, error) {
	allText := strings.Join(pages, "\n")
	account := ""
	if m := bbvaCardNumber.FindStringSubmatch(allText); m != nil {
		account = strings.ReplaceAll(m[1], " ", "")
	}
	currency := statementCurrency(allText)

	table := models.NewTable(
		ColFechaOperacion, ColFechaCargo, ColDescripcion,
		ColImporteCargo, ColImporteAbono, ColCuenta, ColMoneda,
	)

	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			m := bbvaCardLine.FindStringSubmatch(normalizeLine(raw))
			if m == nil {
				continue
			}

			row := models.Row{
				ColFechaOperacion: cardDate(m[1], m[2], m[3]),
				ColFechaCargo:     cardDate(m[4], m[5], m[6]),
				ColDescripcion:    strings.TrimSpace(m[7]),
				ColImporteCargo:   nil,
				ColImporteAbono:   nil,
				ColCuenta:         account,
				ColMoneda:         currency,
			}
			amount := mustAmount(m[9])
			if m[8] == "-" {
				row[ColImporteAbono] = amount
			} else {
				row[ColImporteCargo] = amount
			}

			table.Append(row)
		}
	}

	return table, nil
}

func cardDate(day, month, year string) string {
	y, err := strconv.Atoi(year)
	if err == nil {
		if iso, ok := spanishDate(day, month, y); ok {
			return iso
		}
	}
	return day + "-" + month + "-" + year
}
