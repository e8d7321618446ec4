package runner

import (
	"context"
	"fmt"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/rawadapter"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/reconcile"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
)

// RunReconcile verifies every RECONCILE NOW job: output rows against
// the QBO ledger, then output amounts against the raw source rows.
func (r *Runner) RunReconcile(ctx context.Context) error {
	return r.eachClient(ctx, "reconcile", r.reconcileClient)
}

func (r *Runner) reconcileClient(ctx context.Context, cc clientContext) error {
	jobs, err := cc.board.Jobs(ctx)
	if err != nil {
		return err
	}

	engine := reconcile.New(cc.logger, r.qbo)
	for _, job := range jobs {
		if job.QBOReconcile != models.JobReconcileNow {
			continue
		}
		jlog := cc.logger.With("row", job.RowNum, "country", job.Country, "month", job.Month)
		if err := cc.board.SetStatus(ctx, job.RowNum, models.ColQBOReconcile, models.JobRunning); err != nil {
			jlog.Error("failed to claim job", "err", err)
			continue
		}

		if err := r.reconcileJob(ctx, cc, engine, job); err != nil {
			jlog.Error("reconciliation failed", "err", err)
			_ = cc.board.Update(ctx, job.RowNum, map[string]any{
				models.ColQBOReconcile: models.JobError,
				models.ColLastSyncAt:   timestamp(),
			})
		}
	}
	return nil
}

func (r *Runner) reconcileJob(ctx context.Context, cc clientContext, engine *reconcile.Engine, job models.JobRow) error {
	month, err := jobMonth(job)
	if err != nil {
		return err
	}
	transformID, err := transformFileID(job)
	if err != nil {
		return err
	}
	realmID := cc.client.RealmID
	jTab, eTab, tTab := outputTabs(job.Country, month)

	updates := map[string]any{
		models.ColQBOReconcile: models.JobDoneClean,
		models.ColLastSyncAt:   timestamp(),
	}
	issues := false

	jt, err := r.sheets.ReadTable(ctx, transformID, jTab, 1, false)
	if err != nil {
		return err
	}
	journals := readJournalLines(jt, month)
	if len(journals) > 0 {
		statuses, err := engine.ReconcileJournals(ctx, realmID, month, journals)
		if err != nil {
			return fmt.Errorf("journal reconciliation failed: %w", err)
		}
		if err := r.writeStatuses(ctx, transformID, jTab, jt, statuses); err != nil {
			return err
		}
		issues = setReconcileStatus(updates, models.ColQBOJournal, statuses) || issues
	}

	et, err := r.sheets.ReadTable(ctx, transformID, eTab, 1, false)
	if err != nil {
		return err
	}
	expenses := readExpenseRows(et, month)
	if len(expenses) > 0 {
		statuses, err := engine.ReconcileExpenses(ctx, realmID, month, expenses)
		if err != nil {
			return fmt.Errorf("expense reconciliation failed: %w", err)
		}
		if err := r.writeStatuses(ctx, transformID, eTab, et, statuses); err != nil {
			return err
		}
		issues = setReconcileStatus(updates, models.ColQBOExpense, statuses) || issues
	}

	tt, err := r.sheets.ReadTable(ctx, transformID, tTab, 1, false)
	if err != nil {
		return err
	}
	transfers := readTransferRows(tt, month)
	if len(transfers) > 0 {
		statuses, err := engine.ReconcileTransfers(ctx, realmID, month, transfers)
		if err != nil {
			return fmt.Errorf("transfer reconciliation failed: %w", err)
		}
		if err := r.writeStatuses(ctx, transformID, tTab, tt, statuses); err != nil {
			return err
		}
		issues = setReconcileStatus(updates, models.ColQBOTransfer, statuses) || issues
	}

	rawIssues, err := r.rawCheck(ctx, cc, job, journals, expenses, transfers)
	if err != nil {
		return err
	}
	issues = issues || rawIssues

	if issues {
		updates[models.ColQBOReconcile] = models.JobDoneIssues
	}
	return cc.board.Update(ctx, job.RowNum, updates)
}

// rawCheck compares the output amounts back against the raw tab and
// writes a per-row verdict into its QBO Check column.
func (r *Runner) rawCheck(ctx context.Context, cc clientContext, job models.JobRow, journals []models.JournalLine, expenses []models.ExpenseRow, transfers []models.TransferRow) (bool, error) {
	sourceID, err := sheets.ExtractID(job.SourceRef)
	if err != nil {
		return false, fmt.Errorf("bad source file reference: %w", err)
	}
	if sourceID == "" {
		return false, nil
	}
	t, err := r.sheets.ReadTable(ctx, sourceID, job.TabName, 1, true)
	if err != nil {
		return false, err
	}
	raw := rawadapter.Standardize(t.Header, t.Rows, cc.client.Name, job.Month)
	if len(raw) == 0 {
		return false, nil
	}

	results := reconcile.RawCheck(raw, journals, expenses, transfers)

	noCol := t.Col("No")
	if noCol < 0 {
		cc.logger.Warn("raw tab has no No column, skipping raw check write-back", "tab", job.TabName)
		return rawCheckHasIssues(results), nil
	}
	checkCol, err := r.ensureColumn(ctx, sourceID, job.TabName, t, "QBO Check")
	if err != nil {
		return false, err
	}

	var cells []sheets.CellUpdate
	for i := range t.Rows {
		no := parseNo(t.Cell(i, noCol))
		status, ok := results[no]
		if !ok {
			continue
		}
		cells = append(cells, sheets.CellUpdate{Row: t.SheetRow(i), Col: checkCol + 1, Value: status})
	}
	if err := r.sheets.UpdateCells(ctx, sourceID, job.TabName, cells); err != nil {
		return false, err
	}
	return rawCheckHasIssues(results), nil
}

func rawCheckHasIssues(results map[int64]string) bool {
	for _, status := range results {
		if status != models.ReconcileMatched && status != reconcile.RawSkipped {
			return true
		}
	}
	return false
}

// writeStatuses lands reconciliation verdicts in the tab's Reconcile
// Status column, creating the column when an older tab lacks it.
func (r *Runner) writeStatuses(ctx context.Context, sheetID, tab string, t *sheets.Table, statuses []reconcile.RowStatus) error {
	col, err := r.ensureColumn(ctx, sheetID, tab, t, "Reconcile Status")
	if err != nil {
		return err
	}
	cells := make([]sheets.CellUpdate, 0, len(statuses))
	for _, s := range statuses {
		cells = append(cells, sheets.CellUpdate{Row: t.SheetRow(s.Index), Col: col + 1, Value: s.Status})
	}
	return r.sheets.UpdateCells(ctx, sheetID, tab, cells)
}

// ensureColumn returns the 0-based index of a named column, appending
// the header cell after the last column when it is missing.
func (r *Runner) ensureColumn(ctx context.Context, sheetID, tab string, t *sheets.Table, name string) (int, error) {
	if col := t.Col(name); col >= 0 {
		return col, nil
	}
	col := len(t.Header)
	err := r.sheets.UpdateCells(ctx, sheetID, tab, []sheets.CellUpdate{
		{Row: t.HeaderRow, Col: col + 1, Value: name},
	})
	if err != nil {
		return -1, fmt.Errorf("failed to add %s column to %s: %w", name, tab, err)
	}
	t.Header = append(t.Header, name)
	return col, nil
}

func setReconcileStatus(updates map[string]any, col string, statuses []reconcile.RowStatus) bool {
	if reconcile.HasIssues(statuses) {
		updates[col] = CatMismatch
		return true
	}
	updates[col] = models.ReconcileMatched
	return false
}
