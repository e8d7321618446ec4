package control

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
)

// Board is the repository over one client's control sheet: the job
// queue the runners poll.
type Board struct {
	logger  *log.Logger
	sheets  *sheets.Client
	sheetID string
	tab     string
}

// NewBoard builds a Board repository for one client.
func NewBoard(logger *log.Logger, sc *sheets.Client, sheetID, tab string) *Board {
	return &Board{logger: logger.With("component", "board"), sheets: sc, sheetID: sheetID, tab: tab}
}

// SheetID exposes the underlying spreadsheet id, used as the template
// source when output tabs are cloned.
func (b *Board) SheetID() string { return b.sheetID }

// Jobs reads every job row off the board.
func (b *Board) Jobs(ctx context.Context) ([]models.JobRow, error) {
	t, err := b.sheets.ReadTable(ctx, b.sheetID, b.tab, 1, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read control sheet: %w", err)
	}

	countryCol := t.Col(models.ColCountry)
	sourceCol := t.Col(models.ColSourceFile)
	transformCol := t.Col(models.ColTransformFile)
	tabCol := t.Col(models.ColTabName)
	monthCol := t.Col(models.ColMonth)
	transformStatusCol := t.Col(models.ColTransform)
	syncCol := t.Col(models.ColQBOSync)
	reconcileCol := t.Col(models.ColQBOReconcile)
	lastRowCol := t.Col(models.ColLastProcessedRow)
	lastJVCol := t.Col(models.ColLastJournalNo)
	lastExpCol := t.Col(models.ColLastExpenseNo)
	lastTrCol := t.Col(models.ColLastTransferNo)

	jobs := make([]models.JobRow, 0, len(t.Rows))
	for i := range t.Rows {
		jobs = append(jobs, models.JobRow{
			RowNum:           t.SheetRow(i),
			Country:          t.Cell(i, countryCol),
			SourceRef:        t.Cell(i, sourceCol),
			TransformRef:     t.Cell(i, transformCol),
			TabName:          t.Cell(i, tabCol),
			Month:            t.Cell(i, monthCol),
			Transform:        t.Cell(i, transformStatusCol),
			QBOSync:          t.Cell(i, syncCol),
			QBOReconcile:     t.Cell(i, reconcileCol),
			LastProcessedRow: safeInt(t.Cell(i, lastRowCol)),
			LastJournalNo:    safeInt(t.Cell(i, lastJVCol)),
			LastExpenseNo:    safeInt(t.Cell(i, lastExpCol)),
			LastTransferNo:   safeInt(t.Cell(i, lastTrCol)),
		})
	}
	return jobs, nil
}

// MaxJournalNo returns the highest stored journal counter across all
// job rows. Journal numbers are client-global while expense and
// transfer counters are per job row.
func (b *Board) MaxJournalNo(ctx context.Context) (int64, error) {
	jobs, err := b.Jobs(ctx)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, j := range jobs {
		if j.LastJournalNo > max {
			max = j.LastJournalNo
		}
	}
	return max, nil
}

// Update writes named columns on one job row in a single batch.
// Columns absent from the board are skipped.
func (b *Board) Update(ctx context.Context, rowNum int, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	t, err := b.sheets.ReadTable(ctx, b.sheetID, b.tab, 1, false)
	if err != nil {
		return fmt.Errorf("failed to read control sheet: %w", err)
	}

	var cells []sheets.CellUpdate
	for col, v := range updates {
		idx := t.Col(col)
		if idx < 0 {
			b.logger.Warn("control sheet is missing column", "column", col)
			continue
		}
		cells = append(cells, sheets.CellUpdate{Row: rowNum, Col: idx + 1, Value: v})
	}
	return b.sheets.UpdateCells(ctx, b.sheetID, b.tab, cells)
}

// SetStatus writes a single status column, the most common update.
func (b *Board) SetStatus(ctx context.Context, rowNum int, column, status string) error {
	return b.Update(ctx, rowNum, map[string]any{column: status})
}

func safeInt(s string) int64 {
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
