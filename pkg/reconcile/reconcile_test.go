package reconcile

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
)

type fakeLedger struct {
	docs []qbo.Document
}

func (f *fakeLedger) Query(_ context.Context, _, _, _ string) ([]qbo.Document, error) {
	return f.docs, nil
}

func day(d int) time.Time {
	return time.Date(2025, 2, d, 0, 0, 0, 0, time.UTC)
}

func jline(account string, amount float64, posting string) qbo.Line {
	return qbo.Line{
		Amount:     amount,
		DetailType: "JournalEntryLineDetail",
		JournalDetail: &qbo.JournalDetail{
			PostingType: posting,
			AccountRef:  qbo.Ref{Value: "1", Name: account},
		},
	}
}

func TestReconcileJournalsAllMatched(t *testing.T) {
	ledger := &fakeLedger{docs: []qbo.Document{{
		ID: "55", DocNumber: "KZO-JV0001", TxnDate: "2025-02-03", PrivateNote: "fee",
		Line: []qbo.Line{
			jline("Assets:Bank:Checking", 100, "Credit"),
			jline("Expenses:Fees", 100, "Debit"),
		},
	}}}
	e := New(log.New(io.Discard), ledger)

	lines := []models.JournalLine{
		{No: 1, JournalNo: "KZO-JV0001", Date: day(3), Memo: "fee", Account: "Checking", Amount: -100},
		{No: 1, JournalNo: "KZO-JV0001", Date: day(3), Memo: "fee", Account: "Fees", Amount: 100},
	}
	out, err := e.ReconcileJournals(context.Background(), "r1", day(1), lines)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, s := range out {
		assert.Equal(t, models.ReconcileMatched, s.Status)
	}
	assert.False(t, HasIssues(out))
}

func TestReconcileJournalsFourPasses(t *testing.T) {
	ledger := &fakeLedger{docs: []qbo.Document{{
		ID: "55", DocNumber: "KZO-JV0002", TxnDate: "2025-02-03", PrivateNote: "memo",
		Line: []qbo.Line{
			jline("Expenses:Rent", 40, "Debit"),
			jline("Expenses:Fees", 25, "Debit"),
		},
	}}}
	e := New(log.New(io.Discard), ledger)

	lines := []models.JournalLine{
		// Amount matches Rent's 40 but account differs.
		{JournalNo: "KZO-JV0002", Date: day(3), Memo: "memo", Account: "Utilities", Amount: 40},
		// Account matches Fees but amount differs.
		{JournalNo: "KZO-JV0002", Date: day(3), Memo: "memo", Account: "Fees", Amount: 30},
		// Nothing left in the pool for this one.
		{JournalNo: "KZO-JV0002", Date: day(3), Memo: "memo", Account: "Travel", Amount: 99},
	}
	out, err := e.ReconcileJournals(context.Background(), "r1", day(1), lines)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "Account Mismatch ('Utilities' vs 'Expenses:Rent')", out[0].Status)
	assert.Equal(t, "Amount Mismatch (30.00 vs 25.00)", out[1].Status)
	assert.Equal(t, "No matching line in QBO", out[2].Status)
	assert.True(t, HasIssues(out))
}

func TestReconcileJournalsHeaderWarning(t *testing.T) {
	ledger := &fakeLedger{docs: []qbo.Document{{
		ID: "55", DocNumber: "KZO-JV0003", TxnDate: "2025-02-04", PrivateNote: "fee",
		Line: []qbo.Line{jline("Fees", 10, "Debit")},
	}}}
	e := New(log.New(io.Discard), ledger)

	lines := []models.JournalLine{
		{JournalNo: "KZO-JV0003", Date: day(3), Memo: "fee", Account: "Fees", Amount: 10},
	}
	out, err := e.ReconcileJournals(context.Background(), "r1", day(1), lines)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Date: '2025-02-03' != '2025-02-04' | Matched", out[0].Status)
}

func TestReconcileJournalsNotFound(t *testing.T) {
	e := New(log.New(io.Discard), &fakeLedger{})
	lines := []models.JournalLine{{JournalNo: "KZO-JV0009", Date: day(3), Account: "Fees", Amount: 10}}
	out, err := e.ReconcileJournals(context.Background(), "r1", day(1), lines)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, StatusNotFound, out[0].Status)
	assert.True(t, HasIssues(out))
}

func TestReconcileJournalsByIDBeatsDocNumber(t *testing.T) {
	ledger := &fakeLedger{docs: []qbo.Document{
		{ID: "1", DocNumber: "KZO-JV0004", TxnDate: "2025-02-03", PrivateNote: "a",
			Line: []qbo.Line{jline("Fees", 10, "Debit")}},
		{ID: "2", DocNumber: "OTHER", TxnDate: "2025-02-03", PrivateNote: "a",
			Line: []qbo.Line{jline("Fees", 10, "Debit")}},
	}}
	e := New(log.New(io.Discard), ledger)

	lines := []models.JournalLine{
		{JournalNo: "KZO-JV0004", QBOID: "2", Date: day(3), Memo: "a", Account: "Fees", Amount: 10},
	}
	out, err := e.ReconcileJournals(context.Background(), "r1", day(1), lines)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileMatched, out[0].Status)
}

func TestReconcileExpenses(t *testing.T) {
	ledger := &fakeLedger{docs: []qbo.Document{
		{ID: "70", DocNumber: "KZOTH0225E0001", TxnDate: "2025-02-14", TotalAmt: 89.9,
			AccountRef: &qbo.Ref{Value: "3", Name: "Assets:TH Main Bank"}},
	}}
	e := New(log.New(io.Discard), ledger)

	rows := []models.ExpenseRow{
		{RefNo: "KZOTH0225E0001", PaymentDate: day(14), Amount: 89.9, AccountCr: "TH Main Bank"},
		{RefNo: "KZOTH0225E0002", PaymentDate: day(15), Amount: 12, AccountCr: "TH Main Bank"},
	}
	out, err := e.ReconcileExpenses(context.Background(), "r1", day(1), rows)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, models.ReconcileMatched, out[0].Status)
	assert.Equal(t, StatusNotFound, out[1].Status)
}

func TestReconcileExpensesAmountMismatch(t *testing.T) {
	ledger := &fakeLedger{docs: []qbo.Document{
		{ID: "70", DocNumber: "KZOTH0225E0001", TxnDate: "2025-02-14", TotalAmt: 80,
			AccountRef: &qbo.Ref{Value: "3", Name: "TH Main Bank"}},
	}}
	e := New(log.New(io.Discard), ledger)

	rows := []models.ExpenseRow{
		{RefNo: "KZOTH0225E0001", PaymentDate: day(14), Amount: 89.9, AccountCr: "TH Main Bank"},
	}
	out, err := e.ReconcileExpenses(context.Background(), "r1", day(1), rows)
	require.NoError(t, err)
	assert.Equal(t, "Amount: 89.90 != 80.00", out[0].Status)
}

func TestReconcileTransfersByNote(t *testing.T) {
	ledger := &fakeLedger{docs: []qbo.Document{
		{ID: "80", TxnDate: "2025-02-20", Amount: 150, PrivateNote: "KZOPH0225T0001 - topup"},
	}}
	e := New(log.New(io.Discard), ledger)

	rows := []models.TransferRow{
		{RefNo: "KZOPH0225T0001", Date: day(20), Amount: 150},
		{RefNo: "KZOPH0225T0002", Date: day(21), Amount: 75},
	}
	out, err := e.ReconcileTransfers(context.Background(), "r1", day(1), rows)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileMatched, out[0].Status)
	assert.Equal(t, StatusNotFound, out[1].Status)
}

func TestRawCheck(t *testing.T) {
	raw := []models.RawRow{
		{No: 1, USDQBO: -100},
		{No: 2, USDQBO: 50},
		{No: 3, USDQBO: 7}, // produced no output
	}
	journals := []models.JournalLine{
		{No: 1, Amount: -100}, {No: 1, Amount: 100},
	}
	expenses := []models.ExpenseRow{{No: 2, Amount: 49}}
	transfers := []models.TransferRow{{No: 9, Amount: 10}}

	results := RawCheck(raw, journals, expenses, transfers)
	assert.Equal(t, models.ReconcileMatched, results[1])
	assert.Equal(t, "Unmatched: Amt Diff (50.00 vs 49.00)", results[2])
	assert.Equal(t, RawSkipped, results[3])
	assert.Equal(t, RawMissingInRaw, results[9])
}
