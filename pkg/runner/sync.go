package runner

import (
	"context"
	"fmt"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/syncer"
)

// RunSync posts ready output rows to QBO for every job flagged
// SYNC NOW.
func (r *Runner) RunSync(ctx context.Context) error {
	return r.eachClient(ctx, "sync", r.syncClient)
}

func (r *Runner) syncClient(ctx context.Context, cc clientContext) error {
	jobs, err := cc.board.Jobs(ctx)
	if err != nil {
		return err
	}

	s := syncer.New(cc.logger, r.qbo, cc.resolver)
	for _, job := range jobs {
		if job.QBOSync != models.JobSyncNow {
			continue
		}
		jlog := cc.logger.With("row", job.RowNum, "country", job.Country, "month", job.Month)
		if err := cc.board.SetStatus(ctx, job.RowNum, models.ColQBOSync, models.JobProcessing); err != nil {
			jlog.Error("failed to claim job", "err", err)
			continue
		}

		if err := r.syncJob(ctx, cc, s, job); err != nil {
			jlog.Error("sync failed", "err", err)
			_ = cc.board.Update(ctx, job.RowNum, map[string]any{
				models.ColQBOSync:    models.JobError,
				models.ColLastSyncAt: timestamp(),
			})
		}
	}
	return nil
}

func (r *Runner) syncJob(ctx context.Context, cc clientContext, s *syncer.Syncer, job models.JobRow) error {
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
		models.ColQBOSync:    models.JobDone,
		models.ColLastSyncAt: timestamp(),
	}
	partial := false

	// Journals.
	jt, err := r.sheets.ReadTable(ctx, transformID, jTab, 1, false)
	if err != nil {
		return err
	}
	if len(jt.Rows) > 0 {
		outcome, err := s.SyncJournals(ctx, realmID, readJournalLines(jt, month))
		if err != nil {
			return fmt.Errorf("journal sync failed: %w", err)
		}
		if err := r.writeBack(ctx, transformID, jTab, jt, outcome.Updates); err != nil {
			return err
		}
		partial = partial || outcome.PartialFailure()
		setSyncStatus(updates, models.ColQBOJournal, outcome)
	}

	// Expenses.
	et, err := r.sheets.ReadTable(ctx, transformID, eTab, 1, false)
	if err != nil {
		return err
	}
	if len(et.Rows) > 0 {
		outcome, err := s.SyncExpenses(ctx, realmID, readExpenseRows(et, month))
		if err != nil {
			return fmt.Errorf("expense sync failed: %w", err)
		}
		if err := r.writeBack(ctx, transformID, eTab, et, outcome.Updates); err != nil {
			return err
		}
		partial = partial || outcome.PartialFailure()
		setSyncStatus(updates, models.ColQBOExpense, outcome)
	}

	// Transfers.
	tt, err := r.sheets.ReadTable(ctx, transformID, tTab, 1, false)
	if err != nil {
		return err
	}
	if len(tt.Rows) > 0 {
		outcome, err := s.SyncTransfers(ctx, realmID, month, readTransferRows(tt, month))
		if err != nil {
			return fmt.Errorf("transfer sync failed: %w", err)
		}
		if err := r.writeBack(ctx, transformID, tTab, tt, outcome.Updates); err != nil {
			return err
		}
		partial = partial || outcome.PartialFailure()
		setSyncStatus(updates, models.ColQBOTransfer, outcome)
	}

	if partial {
		updates[models.ColQBOSync] = models.JobPartialError
	}
	return cc.board.Update(ctx, job.RowNum, updates)
}

// writeBack lands per-row sync results on the output tab: Remarks
// always, QBO ID and QBO Link only when a document was created.
func (r *Runner) writeBack(ctx context.Context, sheetID, tab string, t *sheets.Table, rowUpdates []syncer.RowUpdate) error {
	remCol := t.Col("Remarks")
	idCol := t.Col("QBO ID")
	linkCol := t.Col("QBO Link")

	var cells []sheets.CellUpdate
	for _, u := range rowUpdates {
		row := t.SheetRow(u.Index)
		if remCol >= 0 {
			cells = append(cells, sheets.CellUpdate{Row: row, Col: remCol + 1, Value: u.Status})
		}
		if u.QBOID != "" && idCol >= 0 {
			cells = append(cells, sheets.CellUpdate{Row: row, Col: idCol + 1, Value: u.QBOID})
		}
		if u.Link != "" && linkCol >= 0 {
			cells = append(cells, sheets.CellUpdate{Row: row, Col: linkCol + 1, Value: u.Link})
		}
	}
	return r.sheets.UpdateCells(ctx, sheetID, tab, cells)
}

func setSyncStatus(updates map[string]any, col string, outcome syncer.Outcome) {
	if outcome.PartialFailure() {
		updates[col] = CatSyncFail
	} else {
		updates[col] = CatSynced
	}
}
