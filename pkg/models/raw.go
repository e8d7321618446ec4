package models

import (
	"strings"
	"time"
)

// Method is the import route for a raw row, decoded once during
// normalization so the engines never re-parse the free-text tag.
type Method int

const (
	MethodUnknown Method = iota
	MethodJournal
	MethodReclass
	MethodExpense
	MethodTransfer
)

// ParseMethod maps the raw "QBO Import Method" cell onto a Method.
// Matching is case-insensitive substring, same as the bookkeeping
// sheets use it ("Journal Entry", "reclass", "Expenses" all count).
func ParseMethod(s string) Method {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(v, "reclass"):
		return MethodReclass
	case strings.Contains(v, "journal"):
		return MethodJournal
	case strings.Contains(v, "expense"):
		return MethodExpense
	case strings.Contains(v, "transfer"):
		return MethodTransfer
	default:
		return MethodUnknown
	}
}

func (m Method) String() string {
	switch m {
	case MethodJournal:
		return "journal"
	case MethodReclass:
		return "reclass"
	case MethodExpense:
		return "expense"
	case MethodTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// RawRow is one financial event in the canonical 25-column shape that
// every source layout is normalized into. No is the source sequence id
// and the idempotency key for the whole pipeline.
type RawRow struct {
	No              int64
	Location        string // CO column; already GRP→GROUP repaired
	Company         string // COY
	Date            time.Time // zero when the source cell was blank or unparseable
	Category        string
	Type            string // maps to an account name
	ItemDescription string
	TrxHash         string
	AccountFrom     string
	AccountTo       string
	Currency        string
	AmountFrom      float64
	CurrencyTo      string
	AmountTo        float64
	Budget          float64
	USDRaw          float64
	USDActual       float64
	USDLoss         float64
	USDQBO          float64 // canonical USD amount
	ReclassNote     string
	Method          Method
	MethodRaw       string
	OtherAccount    string // "If Journal/Expense Method" credit-side account
	TransferFrom    string
	TransferTo      string
	CheckFlag       string
	InOut           float64 // signed source amount, drives the expense direction test
}

// Excluded reports whether the bookkeeper flagged this row out of the
// pipeline via the free-text check column.
func (r RawRow) Excluded() bool {
	return strings.Contains(strings.ToLower(r.CheckFlag), "exclude")
}

// HasDate reports whether the source row carried a parseable date.
func (r RawRow) HasDate() bool {
	return !r.Date.IsZero()
}
