package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/rawadapter"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/transform"
)

// RunIngestion processes every READY job across all active clients:
// read the raw tab, normalize, transform into output documents and
// append them to the client's transform file.
func (r *Runner) RunIngestion(ctx context.Context) error {
	return r.eachClient(ctx, "ingestion", r.ingestClient)
}

func (r *Runner) ingestClient(ctx context.Context, cc clientContext) error {
	jobs, err := cc.board.Jobs(ctx)
	if err != nil {
		return err
	}

	// Journal numbers are client-global. Seed the counter from the
	// highest value any board row has stored and from the ledger itself,
	// so a counter reset on the sheet cannot mint a duplicate.
	var journalSeq int64
	for _, job := range jobs {
		if job.LastJournalNo > journalSeq {
			journalSeq = job.LastJournalNo
		}
	}
	qboMax, err := r.qbo.MaxDocNumber(ctx, cc.client.RealmID, "JournalEntry", transform.JournalPrefix)
	if err != nil {
		return fmt.Errorf("failed to seed journal counter: %w", err)
	}
	if int64(qboMax) > journalSeq {
		journalSeq = int64(qboMax)
	}

	engine := transform.New(cc.logger, cc.resolver)
	for _, job := range jobs {
		if job.Transform != models.JobReady {
			continue
		}
		jlog := cc.logger.With("row", job.RowNum, "country", job.Country, "month", job.Month)
		if err := cc.board.SetStatus(ctx, job.RowNum, models.ColTransform, models.JobProcessing); err != nil {
			jlog.Error("failed to claim job", "err", err)
			continue
		}

		seq, err := r.ingestJob(ctx, cc, engine, job, journalSeq)
		if err != nil {
			jlog.Error("ingestion failed", "err", err)
			_ = cc.board.Update(ctx, job.RowNum, map[string]any{
				models.ColTransform: models.JobError,
				models.ColLastRunAt: timestamp(),
			})
			continue
		}
		journalSeq = seq
	}
	return nil
}

// ingestJob runs one {country, month} job and returns the advanced
// client-global journal counter.
func (r *Runner) ingestJob(ctx context.Context, cc clientContext, engine *transform.Engine, job models.JobRow, journalSeq int64) (int64, error) {
	month, err := jobMonth(job)
	if err != nil {
		return journalSeq, err
	}
	sourceID, err := sourceFileID(job)
	if err != nil {
		return journalSeq, err
	}

	transformID, err := r.ensureTransformFile(ctx, cc, job, month)
	if err != nil {
		return journalSeq, err
	}

	jTab, eTab, tTab := outputTabs(job.Country, month)
	retry, err := r.scanRetry(ctx, transformID, jTab, eTab, tTab)
	if err != nil {
		return journalSeq, err
	}

	rawTable, err := r.sheets.ReadTable(ctx, sourceID, job.TabName, 1, true)
	if err != nil {
		return journalSeq, err
	}
	raw := rawadapter.Standardize(rawTable.Header, rawTable.Rows, cc.client.Name, job.Month)
	if len(raw) == 0 {
		return journalSeq, r.finishEmpty(ctx, cc, job, models.JobDoneEmpty)
	}

	inMonth := filterMonth(raw, month)
	if len(inMonth) == 0 {
		return journalSeq, r.finishEmpty(ctx, cc, job, models.JobDoneNoData)
	}

	selected := selectRows(inMonth, job.LastProcessedRow, retry.RetryNos())
	if len(selected) == 0 {
		return journalSeq, r.finishEmpty(ctx, cc, job, models.JobDone)
	}

	// Purge the errored rows before re-appending their retries.
	for tab, rowNums := range retry.RowsToPurge {
		if err := r.sheets.DeleteRows(ctx, transformID, tab, rowNums); err != nil {
			return journalSeq, fmt.Errorf("failed to purge error rows from %s: %w", tab, err)
		}
	}

	result := engine.Transform(transform.Input{
		Rows:           selected,
		Country:        job.Country,
		LastJournalNo:  journalSeq,
		LastExpenseNo:  job.LastExpenseNo,
		LastTransferNo: job.LastTransferNo,
		Preserved:      retry.PreservedIDs,
	})

	if err := r.appendOutputs(ctx, cc, transformID, jTab, eTab, tTab, result); err != nil {
		return journalSeq, err
	}

	updates := map[string]any{
		models.ColTransform:      models.JobDone,
		models.ColLastRunAt:      timestamp(),
		models.ColLastJournalNo:  result.LastJournalNo,
		models.ColLastExpenseNo:  result.LastExpenseNo,
		models.ColLastTransferNo: result.LastTransferNo,
	}
	if result.MaxRowProcessed > job.LastProcessedRow {
		updates[models.ColLastProcessedRow] = result.MaxRowProcessed
	}
	setCategoryStatus(updates, models.ColQBOJournal, journalRemarks(result.Journals))
	setCategoryStatus(updates, models.ColQBOExpense, expenseRemarks(result.Expenses))
	setCategoryStatus(updates, models.ColQBOTransfer, transferRemarks(result.Transfers))

	if err := cc.board.Update(ctx, job.RowNum, updates); err != nil {
		return result.LastJournalNo, err
	}
	return result.LastJournalNo, nil
}

// ensureTransformFile resolves the job's transform spreadsheet, creating
// it on first run and writing the link back onto the board.
func (r *Runner) ensureTransformFile(ctx context.Context, cc clientContext, job models.JobRow, month time.Time) (string, error) {
	if job.TransformRef != "" {
		id, err := sheets.ExtractID(job.TransformRef)
		if err != nil {
			return "", fmt.Errorf("bad transform file reference: %w", err)
		}
		return id, nil
	}
	title := fmt.Sprintf("%s - %s QBO - %s", cc.client.Name, job.Country, month.Format("Jan 06"))
	id, err := r.sheets.CreateSpreadsheet(ctx, title)
	if err != nil {
		return "", fmt.Errorf("failed to create transform file: %w", err)
	}
	cc.logger.Info("created transform file", "title", title, "id", id)

	// The service account owns the new file; share it like the board.
	r.sheets.CopyPermissions(ctx, cc.board.SheetID(), id)

	err = cc.board.Update(ctx, job.RowNum, map[string]any{
		models.ColTransformFile: "https://docs.google.com/spreadsheets/d/" + id,
	})
	return id, err
}

// scanRetry reads the existing output tabs for rows that failed a prior
// run: their sheet rows are purged and their document numbers re-issued.
func (r *Runner) scanRetry(ctx context.Context, transformID, jTab, eTab, tTab string) (models.RetryContext, error) {
	retry := models.RetryContext{
		RowsToPurge: map[string][]int{},
		PreservedIDs: models.PreservedIDs{
			Journals:  map[int64]string{},
			Expenses:  map[int64]string{},
			Transfers: map[int64]string{},
		},
	}

	scan := func(tab, docCol string, preserved map[int64]string) error {
		t, err := r.sheets.ReadTable(ctx, transformID, tab, 1, false)
		if err != nil {
			return err
		}
		noCol := t.Col("No")
		remCol := t.Col("Remarks")
		dCol := t.Col(docCol)
		for i := range t.Rows {
			if !models.IsError(t.Cell(i, remCol)) {
				continue
			}
			retry.RowsToPurge[tab] = append(retry.RowsToPurge[tab], t.SheetRow(i))
			no := parseNo(t.Cell(i, noCol))
			if doc := t.Cell(i, dCol); no > 0 && doc != "" {
				preserved[no] = doc
			}
		}
		return nil
	}

	if err := scan(jTab, "Journal No", retry.PreservedIDs.Journals); err != nil {
		return retry, err
	}
	if err := scan(eTab, "Exp Ref. No", retry.PreservedIDs.Expenses); err != nil {
		return retry, err
	}
	if err := scan(tTab, "Ref No", retry.PreservedIDs.Transfers); err != nil {
		return retry, err
	}
	return retry, nil
}

func (r *Runner) appendOutputs(ctx context.Context, cc clientContext, transformID, jTab, eTab, tTab string, result transform.Result) error {
	if len(result.Journals) > 0 {
		rows := make([][]any, len(result.Journals))
		for i, l := range result.Journals {
			rows[i] = l.Values()
		}
		if err := r.sheets.AppendRows(ctx, transformID, jTab, models.JournalHeader(), rows, r.template(cc, "Journals")); err != nil {
			return fmt.Errorf("failed to append journals: %w", err)
		}
	}
	if len(result.Expenses) > 0 {
		rows := make([][]any, len(result.Expenses))
		for i, e := range result.Expenses {
			rows[i] = e.Values()
		}
		if err := r.sheets.AppendRows(ctx, transformID, eTab, models.ExpenseHeader(), rows, r.template(cc, "Expenses")); err != nil {
			return fmt.Errorf("failed to append expenses: %w", err)
		}
	}
	if len(result.Transfers) > 0 {
		rows := make([][]any, len(result.Transfers))
		for i, t := range result.Transfers {
			rows[i] = t.Values()
		}
		if err := r.sheets.AppendRows(ctx, transformID, tTab, models.TransferHeader(), rows, r.template(cc, "Transfers")); err != nil {
			return fmt.Errorf("failed to append transfers: %w", err)
		}
	}
	return nil
}

func (r *Runner) finishEmpty(ctx context.Context, cc clientContext, job models.JobRow, status string) error {
	cc.logger.Info("nothing to process", "row", job.RowNum, "status", status)
	return cc.board.Update(ctx, job.RowNum, map[string]any{
		models.ColTransform: status,
		models.ColLastRunAt: timestamp(),
	})
}

// filterMonth keeps rows dated inside the job month. Undated rows pass
// through so their validation errors surface on the output tab instead
// of silently vanishing.
func filterMonth(rows []models.RawRow, month time.Time) []models.RawRow {
	var out []models.RawRow
	for _, row := range rows {
		if !row.HasDate() || (row.Date.Year() == month.Year() && row.Date.Month() == month.Month()) {
			out = append(out, row)
		}
	}
	return out
}

// selectRows picks the unseen rows plus any explicit retries, deduped
// by source No.
func selectRows(rows []models.RawRow, lastProcessed int64, retryNos []int64) []models.RawRow {
	retry := make(map[int64]bool, len(retryNos))
	for _, no := range retryNos {
		retry[no] = true
	}
	seen := map[int64]bool{}
	var out []models.RawRow
	for _, row := range rows {
		if seen[row.No] {
			continue
		}
		if row.No > lastProcessed || retry[row.No] {
			seen[row.No] = true
			out = append(out, row)
		}
	}
	return out
}

// setCategoryStatus marks a per-document control cell from the batch's
// remarks. A category with no rows keeps its previous cell value.
func setCategoryStatus(updates map[string]any, col string, remarks []string) {
	if len(remarks) == 0 {
		return
	}
	for _, rem := range remarks {
		if models.IsError(rem) {
			updates[col] = CatError
			return
		}
	}
	updates[col] = CatReadyToSync
}

func journalRemarks(lines []models.JournalLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Remarks
	}
	return out
}

func expenseRemarks(rows []models.ExpenseRow) []string {
	out := make([]string, len(rows))
	for i, e := range rows {
		out[i] = e.Remarks
	}
	return out
}

func transferRemarks(rows []models.TransferRow) []string {
	out := make([]string, len(rows))
	for i, t := range rows {
		out[i] = t.Remarks
	}
	return out
}
