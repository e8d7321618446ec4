package models

// ClientRow is one client on the master sheet. Each client owns a
// control spreadsheet and a QBO company (realm).
type ClientRow struct {
	RowNum         int // 1-based sheet row, header is row 1
	Name           string
	ControlSheetID string
	RealmID        string
	Status         string
	RefreshToken   string
	OutputFolder   string
}

// Active reports whether the client should be picked up by the runners.
func (c ClientRow) Active() bool {
	return c.Status == "active" || c.Status == "Active" || c.Status == "ACTIVE"
}

// Job statuses on the control sheet. The status cell is the state
// machine: the runners only ever move a row forward and always land on
// a terminal value.
const (
	JobReady        = "READY"
	JobProcessing   = "PROCESSING"
	JobDone         = "DONE"
	JobDoneEmpty    = "DONE (Empty)"
	JobDoneNoData   = "DONE (No Data)"
	JobError        = "ERROR"
	JobSyncNow      = "SYNC NOW"
	JobPartialError = "PARTIAL ERROR"
	JobReconcileNow = "RECONCILE NOW"
	JobRunning      = "RUNNING..."
	JobDoneClean    = "DONE (Clean)"
	JobDoneIssues   = "DONE (Issues Found)"
)

// Control sheet column names. Runners address cells by header name so a
// client re-ordering columns does not corrupt the board.
const (
	ColCountry          = "Country"
	ColSourceFile       = "Source File"
	ColTransformFile    = "Transform File"
	ColTabName          = "Tab Name"
	ColMonth            = "Month"
	ColTransform        = "Transform"
	ColQBOSync          = "QBO Sync"
	ColQBOReconcile     = "QBO Reconcile"
	ColLastRunAt        = "Last Run At"
	ColLastSyncAt       = "Last Sync At"
	ColLastProcessedRow = "Last Processed Row"
	ColLastJournalNo    = "Last Journal No"
	ColLastExpenseNo    = "Last Expense No"
	ColLastTransferNo   = "Last Transfer No"
	ColQBOJournal       = "QBO Journal"
	ColQBOExpense       = "QBO Expense"
	ColQBOTransfer      = "QBO Transfer"
)

// JobRow is one {country, month} job on a client's control sheet.
type JobRow struct {
	RowNum           int
	Country          string
	SourceRef        string
	TransformRef     string
	TabName          string
	Month            string
	Transform        string
	QBOSync          string
	QBOReconcile     string
	LastProcessedRow int64
	LastJournalNo    int64
	LastExpenseNo    int64
	LastTransferNo   int64
}

// RetryContext captures prior error rows found on the output tabs: the
// sheet rows to purge before re-appending, and the document numbers to
// re-issue keyed by source row number so a retried row keeps its
// identity in the ledger.
type RetryContext struct {
	RowsToPurge  map[string][]int // tab name -> sheet row numbers
	PreservedIDs PreservedIDs
}

// PreservedIDs maps source row No -> previously minted document number,
// per output category.
type PreservedIDs struct {
	Journals  map[int64]string
	Expenses  map[int64]string
	Transfers map[int64]string
}

// RetryNos returns the distinct source row numbers to re-process.
func (r RetryContext) RetryNos() []int64 {
	seen := map[int64]bool{}
	var nos []int64
	for _, m := range []map[int64]string{r.PreservedIDs.Journals, r.PreservedIDs.Expenses, r.PreservedIDs.Transfers} {
		for no := range m {
			if !seen[no] {
				seen[no] = true
				nos = append(nos, no)
			}
		}
	}
	return nos
}
