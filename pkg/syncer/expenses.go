package syncer

import (
	"context"
	"fmt"
	"math"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// SyncExpenses posts ready expense rows as QBO Purchases.
func (s *Syncer) SyncExpenses(ctx context.Context, realmID string, rows []models.ExpenseRow) (Outcome, error) {
	var out Outcome

	var numbers []string
	ready := make([]int, 0, len(rows))
	for i, r := range rows {
		if models.IsReady(r.Remarks) {
			ready = append(ready, i)
			numbers = append(numbers, r.RefNo)
		}
	}
	if len(ready) == 0 {
		return out, nil
	}

	existing, err := s.existingDocNumbers(ctx, realmID, "Purchase", numbers)
	if err != nil {
		return out, err
	}

	for _, i := range ready {
		row := rows[i]
		if existing[row.RefNo] {
			out.Updates = append(out.Updates, RowUpdate{Index: i, Status: models.StatusSkipped})
			out.Skipped++
			continue
		}

		payload, err := s.expensePayload(row)
		if err == nil {
			var doc qbo.Document
			doc, err = s.ledger.Create(ctx, realmID, "Purchase", payload)
			if err == nil {
				out.Updates = append(out.Updates, RowUpdate{
					Index:  i,
					Status: models.StatusSynced,
					QBOID:  doc.ID,
					Link:   DeepLink("expense", doc.ID),
				})
				out.Synced++
				continue
			}
		}

		s.logger.Error("expense post failed", "ref_no", row.RefNo, "err", err)
		out.Updates = append(out.Updates, RowUpdate{Index: i, Status: "ERROR: " + err.Error()})
		out.Failed++
	}
	return out, nil
}

func (s *Syncer) expensePayload(row models.ExpenseRow) (qbo.PurchasePayload, error) {
	payID, err := s.resolveAccount(row.AccountCr)
	if err != nil {
		return qbo.PurchasePayload{}, fmt.Errorf("Payment Account (Cr) not found: '%s'", row.AccountCr)
	}
	expID, err := s.resolveAccount(row.ExpenseAccount)
	if err != nil {
		return qbo.PurchasePayload{}, fmt.Errorf("Expense Account (Dr) not found: '%s'", row.ExpenseAccount)
	}
	if payID == expID {
		return qbo.PurchasePayload{}, fmt.Errorf("payment account and expense category are identical (ID: %s)", payID)
	}

	currency := row.Currency
	if currency == "" {
		currency = "USD"
	}
	memo := row.Memo
	if memo == "" {
		memo = row.ExpenseDescription
	}

	return qbo.PurchasePayload{
		AccountRef:    qbo.Ref{Value: payID},
		PaymentType:   "Cash",
		EntityRef:     s.optionalRef(resolver.Vendors, row.Payee),
		DocNumber:     row.RefNo,
		TxnDate:       txnDate(row.PaymentDate),
		CurrencyRef:   qbo.Ref{Value: currency},
		DepartmentRef: s.optionalRef(resolver.Locations, row.Location),
		PrivateNote:   memo,
		Line: []qbo.Line{{
			Description: memo,
			Amount:      math.Abs(row.Amount),
			DetailType:  "AccountBasedExpenseLineDetail",
			ExpenseDetail: &qbo.ExpenseDetail{
				AccountRef: qbo.Ref{Value: expID},
			},
		}},
	}, nil
}
