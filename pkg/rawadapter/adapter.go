// Package rawadapter normalizes client raw tabs onto the canonical row
// schema the transform and reconcile stages are written against. Two
// layouts exist in the wild: the original 25-column export and the
// simplified KZP export, which is reshaped column by column.
package rawadapter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/money"
)

// legacyColumns is the canonical column order of the original export.
var legacyColumns = []string{
	"CO",
	"COY",
	"Date",
	"Category",
	"Type",
	"Item Description",
	"TrxHarsh",
	"Account Fr",
	"Account To",
	"Currency",
	"Amount Fr",
	"Currency To",
	"Amount To",
	"Budget",
	"USD - Raw",
	"USD - Actual",
	"USD - Loss",
	"USD - QBO",
	"Reclass",
	"QBO Method",
	"If Journal/Expense Method",
	"QBO Transfer Fr",
	"QBO Transfer To",
	"Check (Internal use)",
	"No",
}

var spaceRe = regexp.MustCompile(`\s+`)

func normName(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ToLower(spaceRe.ReplaceAllString(strings.TrimSpace(s), " "))
}

// table wraps a header row plus data rows with alias-tolerant column
// lookup.
type table struct {
	byNorm map[string]int
	rows   [][]string
}

func newTable(header []string, rows [][]string) *table {
	t := &table{byNorm: make(map[string]int, len(header)), rows: rows}
	for i, h := range header {
		key := normName(h)
		if _, exists := t.byNorm[key]; !exists {
			t.byNorm[key] = i
		}
	}
	return t
}

// col returns the index of the first alias present, or -1.
func (t *table) col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.byNorm[normName(a)]; ok {
			return i
		}
	}
	return -1
}

func (t *table) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Standardize maps a raw tab onto canonical rows. clientName and
// rawMonth pick the layout and supply the year for KZP dates written
// without one. An empty or headerless table yields nil.
func Standardize(header []string, rows [][]string, clientName, rawMonth string) []models.RawRow {
	if len(header) == 0 || len(rows) == 0 {
		return nil
	}
	t := newTable(header, rows)

	isKZP := strings.Contains(strings.ToLower(clientName), "kzp")
	hasKZPShape := t.col("In/Out (USD)") >= 0 && t.col("Bank") >= 0 && t.col("USD - QBO") < 0
	if isKZP || hasKZPShape {
		return standardizeKZP(t, rawMonth)
	}
	return standardizeLegacy(t, rawMonth)
}

func standardizeLegacy(t *table, rawMonth string) []models.RawRow {
	monthCtx, _ := ParseMonth(rawMonth)

	idx := make([]int, len(legacyColumns))
	for i, name := range legacyColumns {
		idx[i] = t.col(name)
		if idx[i] < 0 {
			// Positional fallback: the legacy export is fixed-order even
			// when a header cell was hand-edited.
			idx[i] = i
		}
	}
	get := func(row []string, col string) string {
		for i, name := range legacyColumns {
			if name == col {
				return t.cell(row, idx[i])
			}
		}
		return ""
	}

	out := make([]models.RawRow, 0, len(t.rows))
	for _, row := range t.rows {
		r := models.RawRow{
			Location:        get(row, "CO"),
			Company:         get(row, "COY"),
			Category:        get(row, "Category"),
			Type:            get(row, "Type"),
			ItemDescription: get(row, "Item Description"),
			TrxHash:         get(row, "TrxHarsh"),
			AccountFrom:     get(row, "Account Fr"),
			AccountTo:       get(row, "Account To"),
			Currency:        get(row, "Currency"),
			CurrencyTo:      get(row, "Currency To"),
			Budget:          money.Parse(get(row, "Budget")),
			USDRaw:          money.Parse(get(row, "USD - Raw")),
			USDActual:       money.Parse(get(row, "USD - Actual")),
			USDLoss:         money.Parse(get(row, "USD - Loss")),
			USDQBO:          money.Parse(get(row, "USD - QBO")),
			AmountFrom:      money.Parse(get(row, "Amount Fr")),
			AmountTo:        money.Parse(get(row, "Amount To")),
			ReclassNote:     get(row, "Reclass"),
			MethodRaw:       get(row, "QBO Method"),
			OtherAccount:    get(row, "If Journal/Expense Method"),
			TransferFrom:    get(row, "QBO Transfer Fr"),
			TransferTo:      get(row, "QBO Transfer To"),
			CheckFlag:       get(row, "Check (Internal use)"),
		}
		r.No = parseNo(get(row, "No"))
		r.Method = models.ParseMethod(r.MethodRaw)
		if d, ok := ParseDate(get(row, "Date"), monthCtx); ok {
			r.Date = d
		}
		r.InOut = r.AmountFrom
		out = append(out, r)
	}
	return out
}

func standardizeKZP(t *table, rawMonth string) []models.RawRow {
	monthCtx, _ := ParseMonth(rawMonth)

	monthCol := t.col("Month")
	coyCol := t.col("COY")
	dateCol := t.col("Date")
	categoryCol := t.col("Category")
	typeCol := t.col("Type")
	descCol := t.col("Item Description")
	currencyCol := t.col("Currency")
	transferFromCol := t.col("Fund Transfer From")
	bankCol := t.col("Bank")
	amountCol := t.col("In/Out (USD)", "In/Out")
	checkCol := t.col("Check", "Checking ( For our use only )")
	methodCol := t.col("QBO Import Method (Journal/Expenses/Transfer)", "QBO Method")
	noCol := t.col("No")

	out := make([]models.RawRow, 0, len(t.rows))
	seq := int64(0)
	for _, row := range t.rows {
		seq++
		category := t.cell(row, categoryCol)
		// KZP exports interleave month separator rows; drop them.
		if monthCol >= 0 && category == "" {
			continue
		}

		amount := money.Parse(t.cell(row, amountCol))
		bank := t.cell(row, bankCol)
		transferFrom := t.cell(row, transferFromCol)
		currency := t.cell(row, currencyCol)
		if currency == "" {
			currency = "USD"
		}

		r := models.RawRow{
			Location:        countryCode(t.cell(row, coyCol)),
			Company:         t.cell(row, coyCol),
			Category:        category,
			Type:            t.cell(row, typeCol),
			ItemDescription: t.cell(row, descCol),
			AccountFrom:     transferFrom,
			AccountTo:       bank,
			Currency:        currency,
			AmountFrom:      amount,
			USDRaw:          amount,
			USDActual:       amount,
			USDQBO:          amount,
			MethodRaw:       t.cell(row, methodCol),
			OtherAccount:    bank,
			TransferFrom:    transferFrom,
			TransferTo:      bank,
			CheckFlag:       t.cell(row, checkCol),
			InOut:           amount,
		}
		r.Method = models.ParseMethod(r.MethodRaw)

		if n := parseNo(t.cell(row, noCol)); n != 0 {
			r.No = n
		} else {
			r.No = seq
		}

		if d, ok := ParseDate(repairYear(t.cell(row, dateCol), monthCtx), monthCtx); ok {
			r.Date = d
		}
		out = append(out, r)
	}
	return out
}

// countryCode keeps only compact two-letter market codes so malformed
// company cells do not force invalid location mappings downstream.
func countryCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 2 && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z' {
		return s
	}
	return ""
}

var yearRe = regexp.MustCompile(`\b\d{4}\b`)

// repairYear appends the job month's year to a text date written
// without one ("14 Feb" → "14 Feb 2025").
func repairYear(s string, monthCtx time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" || monthCtx.IsZero() {
		return s
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	if yearRe.MatchString(s) {
		return s
	}
	return s + " " + strconv.Itoa(monthCtx.Year())
}

func parseNo(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
