package transform

import (
	"math"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/money"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// processTransfers turns transfer rows into from/to documents. The ref
// number is prepended to the memo because QBO transfers have no
// document-number field; the note text is the only handle for later
// duplicate detection and reconciliation.
func (e *Engine) processTransfers(rows []models.RawRow, in Input) ([]models.TransferRow, int64) {
	m := newMinter(in.LastTransferNo, in.Preserved.Transfers)

	out := make([]models.TransferRow, 0, len(rows))
	for _, row := range rows {
		date := row.Date
		refNo := m.mint(row.No, func(seq int64) string {
			return TransferNumber(in.Country, date, seq)
		})

		tr := models.TransferRow{
			No:          row.No,
			RefNo:       refNo,
			FromAccount: row.TransferFrom,
			ToAccount:   row.TransferTo,
			Amount:      money.Round2(math.Abs(row.USDQBO)),
			Memo:        refNo + " - " + row.ItemDescription,
			Date:        date,
			Location:    e.resolver.Replace(resolver.Locations, row.Location),
			Currency:    "USD",
			Type:        row.Type,
		}
		tr.Remarks = e.validateTransfer(tr)
		out = append(out, tr)
	}
	return out, m.last
}

func (e *Engine) validateTransfer(tr models.TransferRow) string {
	if tr.FromAccount == "" {
		return "ERROR | Missing From Account"
	}
	if tr.ToAccount == "" {
		return "ERROR | Missing To Account"
	}
	if e.resolver.Find(resolver.Accounts, tr.FromAccount) == "" {
		return "ERROR | 'From' Account not in QBO: '" + tr.FromAccount + "'"
	}
	if e.resolver.Find(resolver.Accounts, tr.ToAccount) == "" {
		return "ERROR | 'To' Account not in QBO: '" + tr.ToAccount + "'"
	}
	if tr.FromAccount == tr.ToAccount {
		return "ERROR | 'From' and 'To' Accounts cannot be the same"
	}
	if msg := e.locationError(tr.Location, "not"); msg != "" {
		return msg
	}
	return models.StatusReady
}
