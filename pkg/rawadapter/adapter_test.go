package rawadapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateSerial(t *testing.T) {
	// 45658 days after 1899-12-30 is 2025-01-01.
	d, ok := ParseDate("45658", time.Time{})
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), d)

	_, ok = ParseDate("500000", time.Time{})
	assert.False(t, ok, "values outside the serial range are not dates")
}

func TestParseDateText(t *testing.T) {
	d, ok := ParseDate("2025-02-14", time.Time{})
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), d)

	month, _ := ParseMonth("Feb 2025")
	d, ok = ParseDate("14 Feb", month)
	require.True(t, ok)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 14, d.Day())
}

func TestStandardizeLegacy(t *testing.T) {
	header := []string{
		"CO", "COY", "Date", "Category", "Type", "Item Description", "TrxHarsh",
		"Account Fr", "Account To", "Currency", "Amount Fr", "Currency To",
		"Amount To", "Budget", "USD - Raw", "USD - Actual", "USD - Loss",
		"USD - QBO", "Reclass", "QBO Method", "If Journal/Expense Method",
		"QBO Transfer Fr", "QBO Transfer To", "Check (Internal use)", "No",
	}
	rows := [][]string{
		{"TH", "KZO TH", "2025-02-03", "Fees", "Bank Account", "wire fee", "",
			"", "", "USD", "(1,250.00)", "", "", "", "-1250", "-1250", "",
			"(1,250.00)", "", "Journal", "Bank Fees", "", "", "", "7"},
	}

	out := Standardize(header, rows, "KZO", "Feb 2025")
	require.Len(t, out, 1)
	r := out[0]
	assert.Equal(t, int64(7), r.No)
	assert.Equal(t, "TH", r.Location)
	assert.Equal(t, -1250.0, r.USDQBO)
	assert.Equal(t, "Bank Fees", r.OtherAccount)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), r.Date)
}

func TestStandardizeKZPShape(t *testing.T) {
	header := []string{"Month", "COY", "Date", "Category", "Type",
		"Item Description", "Currency", "Fund Transfer From", "Bank",
		"In/Out (USD)", "Check", "QBO Import Method (Journal/Expenses/Transfer)"}
	rows := [][]string{
		{"Feb", "", "", "", "", "", "", "", "", "", "", ""}, // separator row
		{"", "TH", "14 Feb", "Office", "Supplies", "toner", "", "",
			"TH Main Bank", "(89.90)", "", "Expenses"},
	}

	// Layout detection by shape, not client name.
	out := Standardize(header, rows, "Some Client", "Feb 2025")
	require.Len(t, out, 1)
	r := out[0]
	assert.Equal(t, "TH", r.Location)
	assert.Equal(t, -89.9, r.InOut)
	assert.Equal(t, -89.9, r.USDQBO)
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, "TH Main Bank", r.OtherAccount)
	assert.Equal(t, int64(2), r.No, "missing No falls back to position")
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), r.Date)
}

func TestStandardizeEmpty(t *testing.T) {
	assert.Nil(t, Standardize(nil, nil, "KZO", "Feb 2025"))
	assert.Nil(t, Standardize([]string{"CO"}, nil, "KZO", "Feb 2025"))
}
