// Package runner orchestrates the three pipeline stages over every
// active client: ingestion (raw rows to output documents), syncing
// (output documents to QBO) and reconciliation (sheet vs ledger).
// Each stage polls the client control boards for trigger statuses and
// drives the per-row state machine forward.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/config"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/control"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/money"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/rawadapter"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
)

// Category statuses written to the per-document control cells.
const (
	CatReadyToSync = "READY TO SYNC"
	CatError       = "ERROR"
	CatSynced      = "SYNCED"
	CatSyncFail    = "SYNC FAIL"
	CatMismatch    = "QBO Mismatch"
)

const timestampLayout = "2006-01-02 15:04:05"

// Runner wires the shared clients together and walks the master sheet.
type Runner struct {
	logger *log.Logger
	cfg    *config.Config
	sheets *sheets.Client
	qbo    *qbo.Client
	master *control.Master
	rules  resolver.Rules
}

// New builds a Runner. The QBO client must already be configured with a
// token saver pointing at the master sheet.
func New(logger *log.Logger, cfg *config.Config, sc *sheets.Client, qc *qbo.Client, master *control.Master, rules resolver.Rules) *Runner {
	return &Runner{
		logger: logger.With("component", "runner"),
		cfg:    cfg,
		sheets: sc,
		qbo:    qc,
		master: master,
		rules:  rules,
	}
}

// clientContext is everything one stage needs for one client.
type clientContext struct {
	client   models.ClientRow
	board    *control.Board
	resolver *resolver.Resolver
	logger   *log.Logger
}

// eachClient registers every active client's realm, fetches its QBO
// mappings and invokes fn. A client failure is logged and the loop
// continues; one broken company must not stall the rest.
func (r *Runner) eachClient(ctx context.Context, stage string, fn func(ctx context.Context, cc clientContext) error) error {
	runID := uuid.NewString()
	logger := r.logger.With("stage", stage, "run_id", runID)
	logger.Info("stage starting")

	clients, err := r.master.ActiveClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active clients: %w", err)
	}

	for _, client := range clients {
		clog := logger.With("client", client.Name, "realm", client.RealmID)
		r.qbo.Register(client.RealmID, client.RefreshToken)

		mappings, err := r.qbo.FetchMappings(ctx, client.RealmID)
		if err != nil {
			clog.Error("failed to fetch QBO mappings, skipping client", "err", err)
			continue
		}

		cc := clientContext{
			client:   client,
			board:    control.NewBoard(clog, r.sheets, client.ControlSheetID, r.cfg.ControlTab),
			resolver: resolver.New(mappings, r.rules),
			logger:   clog,
		}
		if err := fn(ctx, cc); err != nil {
			clog.Error("client run failed", "err", err)
		}
	}

	logger.Info("stage finished")
	return nil
}

func timestamp() string {
	return time.Now().Format(timestampLayout)
}

// outputTabs returns the three output tab names for a job, derived from
// the country and month label.
func outputTabs(country string, month time.Time) (string, string, string) {
	base := country + " " + month.Format("Jan 06")
	return base + " - Journals", base + " - Expenses", base + " - Transfers"
}

// jobMonth parses the job's Month cell.
func jobMonth(job models.JobRow) (time.Time, error) {
	month, ok := rawadapter.ParseMonth(job.Month)
	if !ok {
		return time.Time{}, fmt.Errorf("unparseable month %q", job.Month)
	}
	return month, nil
}

// sourceFileID resolves the job's raw spreadsheet reference.
func sourceFileID(job models.JobRow) (string, error) {
	id, err := sheets.ExtractID(job.SourceRef)
	if err != nil {
		return "", fmt.Errorf("bad source file reference: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("job has no source file")
	}
	return id, nil
}

// transformFileID resolves the job's transform spreadsheet reference,
// which the sync and reconcile stages require to already exist.
func transformFileID(job models.JobRow) (string, error) {
	id, err := sheets.ExtractID(job.TransformRef)
	if err != nil {
		return "", fmt.Errorf("bad transform file reference: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("job has no transform file")
	}
	return id, nil
}

// template returns the clone source for an output tab, pointing at the
// sample tabs kept on the client's control spreadsheet.
func (r *Runner) template(cc clientContext, kind string) *sheets.TemplateRef {
	return &sheets.TemplateRef{
		SpreadsheetID: cc.board.SheetID(),
		Tab:           r.cfg.TemplatePrefix + kind,
	}
}

// readJournalLines maps a Journals output tab into journal lines. The
// slice index matches the table's data row index so callers can write
// statuses back by sheet row.
func readJournalLines(t *sheets.Table, month time.Time) []models.JournalLine {
	no := t.Col("No")
	jno := t.Col("Journal No")
	date := t.Col("Date")
	memo := t.Col("Memo")
	account := t.Col("Account")
	amount := t.Col("Amount")
	name := t.Col("Name")
	location := t.Col("Location")
	currency := t.Col("Currency Code")
	class := t.Col("Class")
	remarks := t.Col("Remarks")
	qboID := t.Col("QBO ID")

	lines := make([]models.JournalLine, len(t.Rows))
	for i := range t.Rows {
		d, _ := rawadapter.ParseDate(t.Cell(i, date), month)
		lines[i] = models.JournalLine{
			No:           parseNo(t.Cell(i, no)),
			JournalNo:    t.Cell(i, jno),
			Date:         d,
			Memo:         t.Cell(i, memo),
			Account:      t.Cell(i, account),
			Amount:       money.Parse(t.Cell(i, amount)),
			Name:         t.Cell(i, name),
			Location:     t.Cell(i, location),
			CurrencyCode: t.Cell(i, currency),
			Class:        t.Cell(i, class),
			Remarks:      t.Cell(i, remarks),
			QBOID:        t.Cell(i, qboID),
		}
	}
	return lines
}

func readExpenseRows(t *sheets.Table, month time.Time) []models.ExpenseRow {
	no := t.Col("No")
	ref := t.Col("Exp Ref. No")
	cr := t.Col("Account (Cr)")
	payee := t.Col("Payee (Dummy)")
	memo := t.Col("Memo")
	date := t.Col("Payment Date")
	method := t.Col("Payment Method")
	dr := t.Col("Expense Account (Dr)")
	desc := t.Col("Expense Description")
	amount := t.Col("Expense Line Amount")
	currency := t.Col("Currency")
	location := t.Col("Location")
	remarks := t.Col("Remarks")
	qboID := t.Col("QBO ID")

	rows := make([]models.ExpenseRow, len(t.Rows))
	for i := range t.Rows {
		d, _ := rawadapter.ParseDate(t.Cell(i, date), month)
		rows[i] = models.ExpenseRow{
			No:                 parseNo(t.Cell(i, no)),
			RefNo:              t.Cell(i, ref),
			AccountCr:          t.Cell(i, cr),
			Payee:              t.Cell(i, payee),
			Memo:               t.Cell(i, memo),
			PaymentDate:        d,
			PaymentMethod:      t.Cell(i, method),
			ExpenseAccount:     t.Cell(i, dr),
			ExpenseDescription: t.Cell(i, desc),
			Amount:             money.Parse(t.Cell(i, amount)),
			Currency:           t.Cell(i, currency),
			Location:           t.Cell(i, location),
			Remarks:            t.Cell(i, remarks),
			QBOID:              t.Cell(i, qboID),
		}
	}
	return rows
}

func readTransferRows(t *sheets.Table, month time.Time) []models.TransferRow {
	no := t.Col("No")
	ref := t.Col("Ref No")
	from := t.Col("Transfer Funds From")
	to := t.Col("Transfer Funds To")
	amount := t.Col("Transfer Amount")
	memo := t.Col("Memo")
	date := t.Col("Date")
	location := t.Col("Location")
	currency := t.Col("Currency")
	typ := t.Col("Type")
	remarks := t.Col("Remarks")
	qboID := t.Col("QBO ID")

	rows := make([]models.TransferRow, len(t.Rows))
	for i := range t.Rows {
		d, _ := rawadapter.ParseDate(t.Cell(i, date), month)
		rows[i] = models.TransferRow{
			No:          parseNo(t.Cell(i, no)),
			RefNo:       t.Cell(i, ref),
			FromAccount: t.Cell(i, from),
			ToAccount:   t.Cell(i, to),
			Amount:      money.Parse(t.Cell(i, amount)),
			Memo:        t.Cell(i, memo),
			Date:        d,
			Location:    t.Cell(i, location),
			Currency:    t.Cell(i, currency),
			Type:        t.Cell(i, typ),
			Remarks:     t.Cell(i, remarks),
			QBOID:       t.Cell(i, qboID),
		}
	}
	return rows
}

func parseNo(s string) int64 {
	return int64(money.Parse(s))
}
