package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// ledgerLine is one journal line in the matching pool.
type ledgerLine struct {
	account string
	amount  float64 // signed: debit positive, credit negative
	matched bool
}

// ReconcileJournals matches every sheet journal line against the lines
// of its ledger document. The document is resolved by stored id first,
// then by document number.
func (e *Engine) ReconcileJournals(ctx context.Context, realmID string, month time.Time, lines []models.JournalLine) ([]RowStatus, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	byID, byDoc, _, err := e.fetchMonth(ctx, realmID, "JournalEntry", month)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]int)
	var order []string
	for i, l := range lines {
		if _, seen := groups[l.JournalNo]; !seen {
			order = append(order, l.JournalNo)
		}
		groups[l.JournalNo] = append(groups[l.JournalNo], i)
	}

	var out []RowStatus
	for _, docNo := range order {
		idxs := groups[docNo]
		first := lines[idxs[0]]

		record, found := qbo.Document{}, false
		if first.QBOID != "" {
			record, found = byID[first.QBOID]
		}
		if !found {
			record, found = byDoc[docNo]
		}
		if !found {
			for _, i := range idxs {
				out = append(out, RowStatus{Index: i, Status: StatusNotFound})
			}
			continue
		}

		// Header-level checks warn but do not block line matching.
		var warns []string
		warns = checkText(warns, "Date", sheetDate(first.Date), record.TxnDate)
		warns = checkText(warns, "Memo", first.Memo, record.PrivateNote)
		prefix := ""
		if len(warns) > 0 {
			prefix = strings.Join(warns, "; ") + " | "
		}

		pool := make([]ledgerLine, 0, len(record.Line))
		for _, rl := range record.Line {
			if rl.JournalDetail == nil {
				continue
			}
			pool = append(pool, ledgerLine{account: rl.AccountName(), amount: rl.SignedAmount()})
		}

		for _, i := range idxs {
			out = append(out, RowStatus{Index: i, Status: prefix + matchLine(lines[i], pool)})
		}
	}
	return out, nil
}

// matchLine runs the four-pass search for one sheet line, consuming the
// first ledger line each pass accepts. Pass order is strict so a line
// with an exact account+amount hit is never burned on a weaker match.
func matchLine(sheet models.JournalLine, pool []ledgerLine) string {
	for p := range pool {
		l := &pool[p]
		if !l.matched && resolver.FuzzyEqual(sheet.Account, l.account) && amountsEqual(sheet.Amount, l.amount) {
			l.matched = true
			return models.ReconcileMatched
		}
	}
	for p := range pool {
		l := &pool[p]
		if !l.matched && amountsEqual(sheet.Amount, l.amount) {
			l.matched = true
			return fmt.Sprintf("Account Mismatch ('%s' vs '%s')", sheet.Account, l.account)
		}
	}
	for p := range pool {
		l := &pool[p]
		if !l.matched && resolver.FuzzyEqual(sheet.Account, l.account) {
			l.matched = true
			return fmt.Sprintf("Amount Mismatch (%.2f vs %.2f)", sheet.Amount, l.amount)
		}
	}
	return "No matching line in QBO"
}
