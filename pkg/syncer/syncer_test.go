package syncer

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// fakeLedger records posts and serves canned query results.
type fakeLedger struct {
	existing  []qbo.Document
	created   []string // entity names posted, in order
	nextID    int
	failOn    string // doc number that rejects on post
}

func (f *fakeLedger) Query(_ context.Context, _, entity, where string) ([]qbo.Document, error) {
	var hits []qbo.Document
	for _, d := range f.existing {
		if strings.Contains(where, "'"+d.DocNumber+"'") || strings.Contains(where, "TxnDate") {
			hits = append(hits, d)
		}
	}
	return hits, nil
}

func (f *fakeLedger) Create(_ context.Context, _, entity string, payload any) (qbo.Document, error) {
	docNo := ""
	switch p := payload.(type) {
	case qbo.JournalEntryPayload:
		docNo = p.DocNumber
	case qbo.PurchasePayload:
		docNo = p.DocNumber
	case qbo.TransferPayload:
		docNo = p.DocNumber
	}
	if docNo == f.failOn {
		return qbo.Document{}, errors.New("Business Validation Error")
	}
	f.created = append(f.created, entity+":"+docNo)
	f.nextID++
	return qbo.Document{ID: strconv.Itoa(100 + f.nextID)}, nil
}

func testSyncer(ledger Ledger, accounts ...string) *Syncer {
	table := make(map[string]string, len(accounts))
	for i, a := range accounts {
		table[a] = strconv.Itoa(i + 1)
	}
	res := resolver.New(resolver.MappingSet{
		Accounts:  table,
		Locations: map[string]string{"TH": "50"},
	}, resolver.DefaultRules())
	return New(log.New(io.Discard), ledger, res)
}

func day(d int) time.Time {
	return time.Date(2025, 2, d, 0, 0, 0, 0, time.UTC)
}

func journalPair(docNo string, remarks string) []models.JournalLine {
	return []models.JournalLine{
		{No: 1, JournalNo: docNo, Date: day(3), Account: "Bank", Amount: -100, Memo: "fee", Remarks: remarks},
		{No: 1, JournalNo: docNo, Date: day(3), Account: "Fees", Amount: 100, Memo: "fee", Remarks: remarks},
	}
}

func TestSyncJournalsPostsGroup(t *testing.T) {
	ledger := &fakeLedger{}
	s := testSyncer(ledger, "Bank", "Fees")

	out, err := s.SyncJournals(context.Background(), "r1", journalPair("KZO-JV0001", models.StatusReady))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Synced)
	assert.Equal(t, []string{"JournalEntry:KZO-JV0001"}, ledger.created)
	require.Len(t, out.Updates, 2)
	assert.Equal(t, models.StatusSynced, out.Updates[0].Status)
	assert.Equal(t, out.Updates[0].QBOID, out.Updates[1].QBOID)
	assert.Contains(t, out.Updates[0].Link, "app/journal?txnId=")
}

func TestSyncJournalsSkipsExisting(t *testing.T) {
	ledger := &fakeLedger{existing: []qbo.Document{{DocNumber: "KZO-JV0001"}}}
	s := testSyncer(ledger, "Bank", "Fees")

	out, err := s.SyncJournals(context.Background(), "r1", journalPair("KZO-JV0001", models.StatusReady))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Skipped)
	assert.Empty(t, ledger.created, "existing document must never be re-posted")
	for _, u := range out.Updates {
		assert.Equal(t, models.StatusSkipped, u.Status)
	}
}

func TestSyncJournalsIgnoresNotReady(t *testing.T) {
	ledger := &fakeLedger{}
	s := testSyncer(ledger, "Bank", "Fees")

	out, err := s.SyncJournals(context.Background(), "r1",
		journalPair("KZO-JV0002", "ERROR | Account not found in QBO: 'Bank'"))
	require.NoError(t, err)
	assert.Empty(t, out.Updates)
	assert.Empty(t, ledger.created)
}

func TestSyncJournalsPostFailure(t *testing.T) {
	ledger := &fakeLedger{failOn: "KZO-JV0003"}
	s := testSyncer(ledger, "Bank", "Fees")

	lines := append(journalPair("KZO-JV0003", models.StatusReady), journalPair("KZO-JV0004", models.StatusReady)...)
	out, err := s.SyncJournals(context.Background(), "r1", lines)
	require.NoError(t, err)
	assert.True(t, out.PartialFailure())
	assert.Equal(t, 2, out.Failed)
	assert.Equal(t, 2, out.Synced, "failure of one group does not stop the next")
	assert.Equal(t, "ERROR: Business Validation Error", out.Updates[0].Status)
}

func TestSyncJournalsUnresolvedAtPostTime(t *testing.T) {
	ledger := &fakeLedger{}
	s := testSyncer(ledger, "Bank") // "Fees" missing from mappings

	out, err := s.SyncJournals(context.Background(), "r1", journalPair("KZO-JV0005", models.StatusReady))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Failed)
	assert.Contains(t, out.Updates[0].Status, "ERROR: Account 'Fees' not found")
	assert.Empty(t, ledger.created)
}

func TestSyncExpenses(t *testing.T) {
	ledger := &fakeLedger{}
	s := testSyncer(ledger, "TH Main Bank", "Office Supplies")

	rows := []models.ExpenseRow{
		{No: 3, RefNo: "KZOTH0225E0001", AccountCr: "TH Main Bank", ExpenseAccount: "Office Supplies",
			Amount: 89.9, PaymentDate: day(14), Memo: "toner", Location: "TH", Remarks: models.StatusReady},
		{No: 4, RefNo: "KZOTH0225E0002", AccountCr: "TH Main Bank", ExpenseAccount: "Office Supplies",
			Amount: 12, PaymentDate: day(15), Remarks: "ERROR | Missing Date"},
	}
	out, err := s.SyncExpenses(context.Background(), "r1", rows)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Equal(t, []string{"Purchase:KZOTH0225E0001"}, ledger.created)
	assert.Contains(t, out.Updates[0].Link, "app/expense?txnId=")
}

func TestSyncExpensesIdenticalAccounts(t *testing.T) {
	ledger := &fakeLedger{}
	s := testSyncer(ledger, "TH Main Bank")

	rows := []models.ExpenseRow{{
		RefNo: "KZOTH0225E0003", AccountCr: "TH Main Bank", ExpenseAccount: "TH Main Bank",
		Amount: 5, PaymentDate: day(1), Remarks: models.StatusReady,
	}}
	out, err := s.SyncExpenses(context.Background(), "r1", rows)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Failed)
	assert.Empty(t, ledger.created)
}

func TestSyncTransfersDedupeByNote(t *testing.T) {
	ledger := &fakeLedger{existing: []qbo.Document{
		{ID: "7", TxnDate: "2025-02-20", PrivateNote: "KZOPH0225T0001 - topup"},
	}}
	s := testSyncer(ledger, "Bank A", "Bank B")

	rows := []models.TransferRow{
		{No: 9, RefNo: "KZOPH0225T0001", FromAccount: "Bank A", ToAccount: "Bank B",
			Amount: 150, Date: day(20), Memo: "KZOPH0225T0001 - topup", Remarks: models.StatusReady},
		{No: 10, RefNo: "KZOPH0225T0002", FromAccount: "Bank A", ToAccount: "Bank B",
			Amount: 75, Date: day(21), Memo: "KZOPH0225T0002 - second", Remarks: models.StatusReady},
	}
	out, err := s.SyncTransfers(context.Background(), "r1", day(1), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 1, out.Synced)
	assert.Equal(t, []string{"Transfer:KZOPH0225T0002"}, ledger.created)
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(day(15))
	assert.Equal(t, "2025-02-01", start)
	assert.Equal(t, "2025-02-28", end)
}
