package transform

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

func testEngine(accounts ...string) *Engine {
	table := make(map[string]string, len(accounts))
	for i, a := range accounts {
		table[a] = string(rune('1' + i))
	}
	res := resolver.New(resolver.MappingSet{
		Accounts:  table,
		Locations: map[string]string{"GROUP": "90", "TH": "91", "PH": "92"},
	}, resolver.DefaultRules())
	return New(log.New(io.Discard), res)
}

func day(d int) time.Time {
	return time.Date(2025, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestStandardJournalExpansion(t *testing.T) {
	e := testEngine("Bank", "Fees")
	res := e.Transform(Input{
		Rows: []models.RawRow{{
			No: 1, Method: models.MethodJournal, Category: "Fees",
			Type: "Bank", OtherAccount: "Fees", USDQBO: 100,
			ItemDescription: "wire fee", Date: day(3), Location: "TH",
		}},
		Country: "TH",
	})

	require.Len(t, res.Journals, 2)
	deb, cred := res.Journals[0], res.Journals[1]
	assert.Equal(t, "KZO-JV0001", deb.JournalNo)
	assert.Equal(t, deb.JournalNo, cred.JournalNo)
	assert.Equal(t, -100.0, deb.Amount)
	assert.Equal(t, 100.0, cred.Amount)
	assert.Equal(t, "Bank", deb.Account)
	assert.Equal(t, "Fees", cred.Account)
	assert.Equal(t, models.StatusReady, deb.Remarks)
	assert.Equal(t, models.StatusReady, cred.Remarks)
	assert.Equal(t, int64(1), res.LastJournalNo)
	assert.Equal(t, int64(1), res.MaxRowProcessed)
}

func TestJournalUnresolvedAccount(t *testing.T) {
	e := testEngine("Bank")
	res := e.Transform(Input{
		Rows: []models.RawRow{{
			No: 1, Method: models.MethodJournal, Category: "Fees",
			Type: "Bank", OtherAccount: "Nonexistent Account Zq", USDQBO: 50, Date: day(3),
		}},
		Country: "TH",
	})

	require.Len(t, res.Journals, 2)
	assert.Equal(t, models.StatusReady, res.Journals[0].Remarks)
	assert.Equal(t, "ERROR | Account not found in QBO: 'Nonexistent Account Zq'", res.Journals[1].Remarks)
}

func TestReclassRebalance(t *testing.T) {
	e := testEngine("A", "B")
	res := e.Transform(Input{
		Rows: []models.RawRow{
			{No: 1, Method: models.MethodReclass, Category: "x", Type: "A", USDQBO: 10.00, Date: day(5)},
			{No: 2, Method: models.MethodReclass, Category: "x", Type: "B", USDQBO: -10.005, Date: day(5)},
		},
		Country: "TH",
	})

	require.Len(t, res.Journals, 2)
	assert.Equal(t, res.Journals[0].JournalNo, res.Journals[1].JournalNo)
	assert.Equal(t, 10.0, res.Journals[0].Amount)
	assert.Equal(t, -10.0, res.Journals[1].Amount, "larger-magnitude line absorbs the residue")
	for _, l := range res.Journals {
		assert.Equal(t, models.StatusReady, l.Remarks)
	}
}

func TestReclassBeyondToleranceFlagged(t *testing.T) {
	e := testEngine("A", "B")
	res := e.Transform(Input{
		Rows: []models.RawRow{
			{No: 1, Method: models.MethodReclass, Category: "x", Type: "A", USDQBO: 10, Date: day(5)},
			{No: 2, Method: models.MethodReclass, Category: "x", Type: "B", USDQBO: -8, Date: day(5)},
		},
		Country: "TH",
	})

	require.Len(t, res.Journals, 2)
	for _, l := range res.Journals {
		assert.Equal(t, "ERROR | Unbalanced (2.00)", l.Remarks)
	}
}

func TestReclassSeparateDatesSeparateNumbers(t *testing.T) {
	e := testEngine("A", "B")
	res := e.Transform(Input{
		Rows: []models.RawRow{
			{No: 1, Method: models.MethodReclass, Category: "x", Type: "A", USDQBO: 5, Date: day(5)},
			{No: 2, Method: models.MethodReclass, Category: "x", Type: "B", USDQBO: 7, Date: day(6)},
		},
		Country: "TH",
	})

	require.Len(t, res.Journals, 2)
	assert.NotEqual(t, res.Journals[0].JournalNo, res.Journals[1].JournalNo)
}

func TestPreservedNumberReuse(t *testing.T) {
	e := testEngine("Bank", "Fees")
	in := Input{
		Rows: []models.RawRow{
			{No: 4, Method: models.MethodJournal, Category: "x", Type: "Bank", OtherAccount: "Fees", USDQBO: 10, Date: day(1)},
			{No: 5, Method: models.MethodJournal, Category: "x", Type: "Bank", OtherAccount: "Fees", USDQBO: 20, Date: day(2)},
		},
		Country:       "TH",
		LastJournalNo: 17,
		Preserved:     models.PreservedIDs{Journals: map[int64]string{4: "KZO-JV0009"}},
	}
	res := e.Transform(in)

	require.Len(t, res.Journals, 4)
	assert.Equal(t, "KZO-JV0009", res.Journals[0].JournalNo, "retried row keeps its number")
	assert.Equal(t, "KZO-JV0018", res.Journals[2].JournalNo, "fresh row advances past the stored max")
	assert.Equal(t, int64(18), res.LastJournalNo)

	// Re-running with the same preserved map yields identical numbers.
	again := e.Transform(in)
	assert.Equal(t, res.Journals[0].JournalNo, again.Journals[0].JournalNo)
	assert.Equal(t, res.Journals[2].JournalNo, again.Journals[2].JournalNo)
}

func TestExpenseRow(t *testing.T) {
	e := testEngine("TH Main Bank", "Office Supplies")
	res := e.Transform(Input{
		Rows: []models.RawRow{{
			No: 3, Method: models.MethodExpense, Category: "Office",
			Type: "Office Supplies", AccountFrom: "TH Main Bank",
			USDQBO: -89.9, InOut: -89.9, Date: day(14),
			ItemDescription: "toner", Location: "TH",
		}},
		Country: "TH",
	})

	require.Len(t, res.Expenses, 1)
	exp := res.Expenses[0]
	assert.Equal(t, "KZOTH0225E0001", exp.RefNo)
	assert.Equal(t, 89.9, exp.Amount)
	assert.Equal(t, "TH Main Bank", exp.AccountCr)
	assert.Equal(t, "Office Supplies", exp.ExpenseAccount)
	assert.Equal(t, models.StatusReady, exp.Remarks)
}

func TestExpenseUnresolvedSourceAccount(t *testing.T) {
	e := testEngine("Bank Y")
	res := e.Transform(Input{
		Rows: []models.RawRow{{
			No: 1, Method: models.MethodExpense, Category: "x",
			Type: "Bank Y", AccountFrom: "Bank X", USDQBO: -5, InOut: -5, Date: day(1),
		}},
		Country: "PH",
	})

	require.Len(t, res.Expenses, 1)
	assert.Equal(t, "ERROR | Source Account not in QBO: 'Bank X'", res.Expenses[0].Remarks)
}

func TestExpensePositiveInOutDropped(t *testing.T) {
	e := testEngine("Bank")
	res := e.Transform(Input{
		Rows: []models.RawRow{{
			No: 1, Method: models.MethodExpense, Category: "x",
			Type: "Bank", USDQBO: 5, InOut: 5, Date: day(1),
		}},
		Country: "PH",
	})
	assert.Empty(t, res.Expenses)
}

func TestTransferRow(t *testing.T) {
	e := testEngine("Bank A", "Bank B")
	res := e.Transform(Input{
		Rows: []models.RawRow{{
			No: 9, Method: models.MethodTransfer, Category: "x",
			TransferFrom: "Bank A", TransferTo: "Bank B",
			USDQBO: -150, Date: day(20), ItemDescription: "topup", Location: "GRP",
		}},
		Country: "PH",
	})

	require.Len(t, res.Transfers, 1)
	tr := res.Transfers[0]
	assert.Equal(t, "KZOPH0225T0001", tr.RefNo)
	assert.Equal(t, 150.0, tr.Amount, "transfer amounts are absolute")
	assert.Equal(t, tr.RefNo+" - topup", tr.Memo)
	assert.Equal(t, "GROUP", tr.Location)
	assert.Equal(t, models.StatusReady, tr.Remarks)
}

func TestTransferSameEndpoints(t *testing.T) {
	e := testEngine("Bank A")
	res := e.Transform(Input{
		Rows: []models.RawRow{{
			No: 1, Method: models.MethodTransfer, Category: "x",
			TransferFrom: "Bank A", TransferTo: "Bank A", USDQBO: 10, Date: day(1),
		}},
		Country: "PH",
	})
	require.Len(t, res.Transfers, 1)
	assert.Equal(t, "ERROR | 'From' and 'To' Accounts cannot be the same", res.Transfers[0].Remarks)
}

func TestExcludedAndZeroRowsDropped(t *testing.T) {
	e := testEngine("Bank", "Fees")
	res := e.Transform(Input{
		Rows: []models.RawRow{
			{No: 1, Method: models.MethodJournal, Category: "x", Type: "Bank", OtherAccount: "Fees", USDQBO: 10, Date: day(1), CheckFlag: "exclude"},
			{No: 2, Method: models.MethodJournal, Category: "x", Type: "Bank", OtherAccount: "Fees", USDQBO: 0.001, Date: day(1)},
			{No: 3, Method: models.MethodJournal, Category: "", Type: "Bank", OtherAccount: "Fees", USDQBO: 10, Date: day(1)},
		},
		Country: "TH",
	})
	assert.Empty(t, res.Journals)
	assert.Equal(t, int64(3), res.MaxRowProcessed)
}
