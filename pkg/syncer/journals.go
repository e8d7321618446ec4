package syncer

import (
	"context"
	"math"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// SyncJournals posts ready journal groups. All lines sharing a journal
// number succeed or fail together; a group whose number already exists
// in the ledger is skipped line by line.
func (s *Syncer) SyncJournals(ctx context.Context, realmID string, lines []models.JournalLine) (Outcome, error) {
	var out Outcome

	// Group ready lines by journal number, keeping first-seen order.
	groups := make(map[string][]int)
	var order []string
	for i, l := range lines {
		if !models.IsReady(l.Remarks) {
			continue
		}
		if _, seen := groups[l.JournalNo]; !seen {
			order = append(order, l.JournalNo)
		}
		groups[l.JournalNo] = append(groups[l.JournalNo], i)
	}
	if len(order) == 0 {
		return out, nil
	}

	existing, err := s.existingDocNumbers(ctx, realmID, "JournalEntry", order)
	if err != nil {
		return out, err
	}

	for _, docNo := range order {
		idxs := groups[docNo]
		if existing[docNo] {
			for _, i := range idxs {
				out.Updates = append(out.Updates, RowUpdate{Index: i, Status: models.StatusSkipped})
			}
			out.Skipped += len(idxs)
			continue
		}

		payload, err := s.journalPayload(docNo, lines, idxs)
		if err == nil {
			var doc qbo.Document
			doc, err = s.ledger.Create(ctx, realmID, "JournalEntry", payload)
			if err == nil {
				for _, i := range idxs {
					out.Updates = append(out.Updates, RowUpdate{
						Index:  i,
						Status: models.StatusSynced,
						QBOID:  doc.ID,
						Link:   DeepLink("journal", doc.ID),
					})
				}
				out.Synced += len(idxs)
				continue
			}
		}

		s.logger.Error("journal post failed", "doc_no", docNo, "err", err)
		for _, i := range idxs {
			out.Updates = append(out.Updates, RowUpdate{Index: i, Status: "ERROR: " + err.Error()})
		}
		out.Failed += len(idxs)
	}
	return out, nil
}

func (s *Syncer) journalPayload(docNo string, lines []models.JournalLine, idxs []int) (qbo.JournalEntryPayload, error) {
	first := lines[idxs[0]]
	currency := first.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	payload := qbo.JournalEntryPayload{
		DocNumber:   docNo,
		TxnDate:     txnDate(first.Date),
		PrivateNote: first.Memo,
		CurrencyRef: qbo.Ref{Value: currency},
	}
	for _, i := range idxs {
		l := lines[i]
		accID, err := s.resolveAccount(l.Account)
		if err != nil {
			return qbo.JournalEntryPayload{}, err
		}
		posting := "Credit"
		if l.Amount > 0 {
			posting = "Debit"
		}
		payload.Line = append(payload.Line, qbo.Line{
			Description: l.Memo,
			Amount:      math.Abs(l.Amount),
			DetailType:  "JournalEntryLineDetail",
			JournalDetail: &qbo.JournalDetail{
				PostingType:   posting,
				AccountRef:    qbo.Ref{Value: accID},
				DepartmentRef: s.optionalRef(resolver.Locations, l.Location),
				ClassRef:      s.optionalRef(resolver.Classes, l.Class),
			},
		})
	}
	return payload, nil
}
