package models

import (
	"strings"
	"time"
)

// Row status markers shared by transform, sync and reconciliation.
const (
	StatusReady      = "Ready to sync"
	StatusSynced     = "Synced"
	StatusSkipped    = "Skipped (Already in QBO)"
	ErrorPrefix      = "ERROR"
	ReconcileMatched = "Matched"
)

// IsReady reports whether a Remarks value marks the row as postable.
func IsReady(remarks string) bool {
	return strings.Contains(strings.ToLower(remarks), strings.ToLower(StatusReady))
}

// IsError reports whether a Remarks value carries a validation or sync
// error. "Unbalance" is matched on its own because older sheets carry
// the bare marker without the ERROR prefix.
func IsError(remarks string) bool {
	v := strings.ToLower(remarks)
	return strings.Contains(v, "error") || strings.Contains(v, "unbalance")
}

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// JournalLine is one line of a journal entry document. Lines sharing a
// JournalNo form one document and must sum to zero before syncing.
type JournalLine struct {
	No              int64
	JournalNo       string
	Date            time.Time
	Memo            string
	Account         string
	Amount          float64
	Name            string
	Location        string
	CurrencyCode    string
	Class           string
	Remarks         string
	QBOID           string
	QBOLink         string
	ReconcileStatus string
}

// JournalHeader is the fixed column order of the Journals output tab.
func JournalHeader() []string {
	return []string{"No", "Journal No", "Date", "Memo", "Account", "Amount", "Name", "Location", "Currency Code", "Class", "Remarks", "QBO ID", "QBO Link", "Reconcile Status"}
}

// Values renders the line in JournalHeader order for a sheet append.
func (l JournalLine) Values() []any {
	return []any{l.No, l.JournalNo, formatDate(l.Date), l.Memo, l.Account, l.Amount, l.Name, l.Location, l.CurrencyCode, l.Class, l.Remarks, l.QBOID, l.QBOLink, l.ReconcileStatus}
}

// ExpenseRow is one expense (QBO Purchase) document.
type ExpenseRow struct {
	No                 int64
	RefNo              string
	AccountCr          string // payment (credit-side) account
	Payee              string
	Memo               string
	PaymentDate        time.Time
	PaymentMethod      string
	ExpenseAccount     string // debit-side account
	ExpenseDescription string
	Amount             float64
	Currency           string
	Location           string
	Remarks            string
	QBOID              string
	QBOLink            string
	ReconcileStatus    string
}

func ExpenseHeader() []string {
	return []string{"No", "Exp Ref. No", "Account (Cr)", "Payee (Dummy)", "Memo", "Payment Date", "Payment Method", "Expense Account (Dr)", "Expense Description", "Expense Line Amount", "Currency", "Location", "Remarks", "QBO ID", "QBO Link", "Reconcile Status"}
}

func (e ExpenseRow) Values() []any {
	return []any{e.No, e.RefNo, e.AccountCr, e.Payee, e.Memo, formatDate(e.PaymentDate), e.PaymentMethod, e.ExpenseAccount, e.ExpenseDescription, e.Amount, e.Currency, e.Location, e.Remarks, e.QBOID, e.QBOLink, e.ReconcileStatus}
}

// TransferRow is one inter-account transfer document.
type TransferRow struct {
	No              int64
	RefNo           string
	FromAccount     string
	ToAccount       string
	Amount          float64
	Memo            string
	Date            time.Time
	Location        string
	Currency        string
	Type            string
	Remarks         string
	QBOID           string
	QBOLink         string
	ReconcileStatus string
}

func TransferHeader() []string {
	return []string{"No", "Ref No", "Transfer Funds From", "Transfer Funds To", "Transfer Amount", "Memo", "Date", "Location", "Currency", "Type", "Remarks", "QBO ID", "QBO Link", "Reconcile Status"}
}

func (t TransferRow) Values() []any {
	return []any{t.No, t.RefNo, t.FromAccount, t.ToAccount, t.Amount, t.Memo, formatDate(t.Date), t.Location, t.Currency, t.Type, t.Remarks, t.QBOID, t.QBOLink, t.ReconcileStatus}
}
