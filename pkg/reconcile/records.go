package reconcile

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// ReconcileExpenses matches each expense row against its Purchase:
// date, total and the payment account.
func (e *Engine) ReconcileExpenses(ctx context.Context, realmID string, month time.Time, rows []models.ExpenseRow) ([]RowStatus, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	byID, byDoc, _, err := e.fetchMonth(ctx, realmID, "Purchase", month)
	if err != nil {
		return nil, err
	}

	out := make([]RowStatus, 0, len(rows))
	for i, row := range rows {
		record, found := qbo.Document{}, false
		if row.QBOID != "" {
			record, found = byID[row.QBOID]
		}
		if !found {
			record, found = byDoc[row.RefNo]
		}
		if !found {
			out = append(out, RowStatus{Index: i, Status: StatusNotFound})
			continue
		}

		var errs []string
		errs = checkText(errs, "Date", sheetDate(row.PaymentDate), record.TxnDate)
		errs = checkAmount(errs, "Amount", math.Abs(row.Amount), record.TotalAmt)
		if record.AccountRef != nil && !resolver.FuzzyEqual(row.AccountCr, record.AccountRef.Name) {
			errs = append(errs, "Payment Account Mismatch ('"+row.AccountCr+"' vs '"+record.AccountRef.Name+"')")
		}

		status := models.ReconcileMatched
		if len(errs) > 0 {
			status = strings.Join(errs, "; ")
		}
		out = append(out, RowStatus{Index: i, Status: status})
	}
	return out, nil
}

// ReconcileTransfers matches each transfer row by stored id, falling
// back to a note scan since transfers carry no document number.
func (e *Engine) ReconcileTransfers(ctx context.Context, realmID string, month time.Time, rows []models.TransferRow) ([]RowStatus, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	byID, _, docs, err := e.fetchMonth(ctx, realmID, "Transfer", month)
	if err != nil {
		return nil, err
	}

	out := make([]RowStatus, 0, len(rows))
	for i, row := range rows {
		record, found := qbo.Document{}, false
		if row.QBOID != "" {
			record, found = byID[row.QBOID]
		}
		if !found && row.RefNo != "" {
			for _, d := range docs {
				if strings.Contains(d.PrivateNote, row.RefNo) {
					record, found = d, true
					break
				}
			}
		}
		if !found {
			out = append(out, RowStatus{Index: i, Status: StatusNotFound})
			continue
		}

		var errs []string
		errs = checkText(errs, "Date", sheetDate(row.Date), record.TxnDate)
		errs = checkAmount(errs, "Amount", math.Abs(row.Amount), record.Amount)

		status := models.ReconcileMatched
		if len(errs) > 0 {
			status = strings.Join(errs, "; ")
		}
		out = append(out, RowStatus{Index: i, Status: status})
	}
	return out, nil
}
