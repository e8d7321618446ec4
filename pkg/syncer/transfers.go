package syncer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
)

// SyncTransfers posts ready transfer rows. Dedupe runs against the
// month's transfer notes rather than document numbers.
func (s *Syncer) SyncTransfers(ctx context.Context, realmID string, month time.Time, rows []models.TransferRow) (Outcome, error) {
	var out Outcome

	var refs []string
	ready := make([]int, 0, len(rows))
	for i, r := range rows {
		if models.IsReady(r.Remarks) {
			ready = append(ready, i)
			refs = append(refs, r.RefNo)
		}
	}
	if len(ready) == 0 {
		return out, nil
	}

	existing, err := s.existingTransferRefs(ctx, realmID, month, refs)
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

		payload, err := s.transferPayload(row)
		if err == nil {
			var doc qbo.Document
			doc, err = s.ledger.Create(ctx, realmID, "Transfer", payload)
			if err == nil {
				out.Updates = append(out.Updates, RowUpdate{
					Index:  i,
					Status: models.StatusSynced,
					QBOID:  doc.ID,
					Link:   DeepLink("transfer", doc.ID),
				})
				out.Synced++
				continue
			}
		}

		s.logger.Error("transfer post failed", "ref_no", row.RefNo, "err", err)
		out.Updates = append(out.Updates, RowUpdate{Index: i, Status: "ERROR: " + err.Error()})
		out.Failed++
	}
	return out, nil
}

func (s *Syncer) transferPayload(row models.TransferRow) (qbo.TransferPayload, error) {
	fromID, err := s.resolveAccount(row.FromAccount)
	if err != nil {
		return qbo.TransferPayload{}, fmt.Errorf("From account not found: '%s'", row.FromAccount)
	}
	toID, err := s.resolveAccount(row.ToAccount)
	if err != nil {
		return qbo.TransferPayload{}, fmt.Errorf("To account not found: '%s'", row.ToAccount)
	}
	// QBO rejects self-transfers with an opaque 400.
	if fromID == toID {
		return qbo.TransferPayload{}, fmt.Errorf("'From' and 'To' accounts are identical (ID: %s)", fromID)
	}

	currency := row.Currency
	if currency == "" {
		currency = "USD"
	}
	return qbo.TransferPayload{
		TxnDate:        txnDate(row.Date),
		Amount:         math.Abs(row.Amount),
		FromAccountRef: qbo.Ref{Value: fromID},
		ToAccountRef:   qbo.Ref{Value: toID},
		PrivateNote:    row.Memo,
		CurrencyRef:    qbo.Ref{Value: currency},
		DocNumber:      row.RefNo,
	}, nil
}
