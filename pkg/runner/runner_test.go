package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
)

func TestOutputTabs(t *testing.T) {
	month := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	j, e, tr := outputTabs("TH", month)
	assert.Equal(t, "TH Feb 25 - Journals", j)
	assert.Equal(t, "TH Feb 25 - Expenses", e)
	assert.Equal(t, "TH Feb 25 - Transfers", tr)
}

func TestFilterMonth(t *testing.T) {
	month := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.RawRow{
		{No: 1, Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)},
		{No: 2, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{No: 3}, // undated rows pass through for validation
	}
	out := filterMonth(rows, month)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].No)
	assert.Equal(t, int64(3), out[1].No)
}

func TestJobFileIDs(t *testing.T) {
	job := models.JobRow{
		SourceRef:    "https://docs.google.com/spreadsheets/d/1RawFile-42/edit#gid=0",
		TransformRef: "1TransformFile-7",
	}
	id, err := sourceFileID(job)
	require.NoError(t, err)
	assert.Equal(t, "1RawFile-42", id)

	id, err = transformFileID(job)
	require.NoError(t, err)
	assert.Equal(t, "1TransformFile-7", id)

	_, err = transformFileID(models.JobRow{})
	assert.ErrorContains(t, err, "no transform file")

	_, err = sourceFileID(models.JobRow{SourceRef: "https://docs.google.com/document/d/not-a-sheet"})
	assert.ErrorContains(t, err, "bad source file reference")
}

func TestSelectRows(t *testing.T) {
	rows := []models.RawRow{{No: 5}, {No: 6}, {No: 7}, {No: 7}}
	out := selectRows(rows, 6, []int64{5})
	require.Len(t, out, 2)
	assert.Equal(t, int64(5), out[0].No)
	assert.Equal(t, int64(7), out[1].No)
}

func TestSetCategoryStatus(t *testing.T) {
	updates := map[string]any{}
	setCategoryStatus(updates, models.ColQBOJournal, []string{models.StatusReady, models.StatusReady})
	setCategoryStatus(updates, models.ColQBOExpense, []string{models.StatusReady, "ERROR | Missing Date"})
	setCategoryStatus(updates, models.ColQBOTransfer, nil)

	assert.Equal(t, CatReadyToSync, updates[models.ColQBOJournal])
	assert.Equal(t, CatError, updates[models.ColQBOExpense])
	_, ok := updates[models.ColQBOTransfer]
	assert.False(t, ok, "empty category must keep its previous cell")
}

func TestReadJournalLines(t *testing.T) {
	month := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	table := &sheets.Table{
		Header:    models.JournalHeader(),
		HeaderRow: 1,
		Rows: [][]string{
			{"3", "KZO-JV0007", "2025-02-14", "fee", "Bank Fees", "-12.50", "", "TH", "USD", "", "Ready to sync", "", "", ""},
		},
	}
	lines := readJournalLines(table, month)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].No)
	assert.Equal(t, "KZO-JV0007", lines[0].JournalNo)
	assert.Equal(t, -12.5, lines[0].Amount)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), lines[0].Date)
	assert.True(t, models.IsReady(lines[0].Remarks))
}

func TestRawCheckHasIssues(t *testing.T) {
	assert.False(t, rawCheckHasIssues(map[int64]string{1: models.ReconcileMatched, 2: "Skipped"}))
	assert.True(t, rawCheckHasIssues(map[int64]string{1: "Unmatched: Amt Diff (5.00 vs 4.00)"}))
}
