package transform

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/money"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

const (
	// BalanceTolerance is the max residue a journal group may carry and
	// still be postable.
	BalanceTolerance = 0.01
	// RebalanceTolerance is the max residue a reclass group may carry
	// and still be auto-corrected by adjusting its largest line.
	RebalanceTolerance = 0.50
)

// processJournals expands standard journal rows into debit/credit line
// pairs and reclass rows into date-grouped multi-line documents, then
// validates every line.
func (e *Engine) processJournals(std, reclass []models.RawRow, in Input) ([]models.JournalLine, int64) {
	m := newMinter(in.LastJournalNo, in.Preserved.Journals)

	var lines []models.JournalLine
	for _, row := range std {
		docNo := m.mint(row.No, JournalNumber)
		location := e.resolver.Replace(resolver.Locations, row.Location)
		amount := money.Round2(row.USDQBO)

		debit := models.JournalLine{
			No:           row.No,
			JournalNo:    docNo,
			Date:         row.Date,
			Memo:         row.ItemDescription,
			Account:      row.Type,
			Amount:       -amount,
			Name:         row.ItemDescription,
			Location:     location,
			CurrencyCode: "USD",
		}
		credit := debit
		credit.Account = row.OtherAccount
		credit.Amount = amount
		lines = append(lines, debit, credit)
	}

	lines = append(lines, e.expandReclass(reclass, m)...)

	// Zero-amount lines carry no posting and are dropped before
	// validation so they cannot unbalance a group.
	kept := lines[:0]
	for _, l := range lines {
		if !money.IsZero(l.Amount) {
			l.Amount = money.Round2(l.Amount)
			kept = append(kept, l)
		}
	}
	lines = kept

	e.validateJournals(lines)
	return lines, m.last
}

// expandReclass groups reclass rows by calendar date and numbers each
// group as one document. After cent-rounding, a group residue within
// RebalanceTolerance is folded into the group's largest-magnitude line;
// anything larger is left for validation to flag.
func (e *Engine) expandReclass(rows []models.RawRow, m *minter) []models.JournalLine {
	if len(rows) == 0 {
		return nil
	}

	groups := make(map[time.Time][]models.RawRow)
	var dates []time.Time
	for _, row := range rows {
		day := row.Date
		if !day.IsZero() {
			day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		}
		if _, seen := groups[day]; !seen {
			dates = append(dates, day)
		}
		groups[day] = append(groups[day], row)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var lines []models.JournalLine
	for _, day := range dates {
		group := groups[day]
		nos := make([]int64, len(group))
		for i, row := range group {
			nos[i] = row.No
		}
		docNo := m.mintGroup(nos, JournalNumber)

		groupLines := make([]models.JournalLine, 0, len(group))
		sum := 0.0
		for _, row := range group {
			amount := money.Round2(row.USDQBO)
			sum = money.Sum2([]float64{sum, amount})
			groupLines = append(groupLines, models.JournalLine{
				No:           row.No,
				JournalNo:    docNo,
				Date:         row.Date,
				Memo:         row.ItemDescription,
				Account:      row.Type,
				Amount:       amount,
				Name:         row.ItemDescription,
				Location:     e.resolver.Replace(resolver.Locations, row.Location),
				CurrencyCode: "USD",
			})
		}

		if sum != 0 && math.Abs(sum) <= RebalanceTolerance {
			biggest := 0
			for i, l := range groupLines {
				if math.Abs(l.Amount) > math.Abs(groupLines[biggest].Amount) {
					biggest = i
				}
			}
			groupLines[biggest].Amount = money.Round2(groupLines[biggest].Amount - sum)
			e.logger.Debug("rebalanced reclass group", "journal_no", docNo, "residue", sum)
		}
		lines = append(lines, groupLines...)
	}
	return lines
}

// validateJournals writes the Remarks status onto every line: the group
// balance check first, then account and location resolution.
func (e *Engine) validateJournals(lines []models.JournalLine) {
	sums := make(map[string]float64)
	for _, l := range lines {
		sums[l.JournalNo] = money.Sum2([]float64{sums[l.JournalNo], l.Amount})
	}

	for i := range lines {
		l := &lines[i]
		if diff := sums[l.JournalNo]; math.Abs(diff) > BalanceTolerance {
			l.Remarks = fmt.Sprintf("ERROR | Unbalanced (%.2f)", diff)
			continue
		}
		if l.Account == "" {
			l.Remarks = "ERROR | Missing Account Name"
			continue
		}
		if e.resolver.Find(resolver.Accounts, l.Account) == "" {
			l.Remarks = "ERROR | Account not found in QBO: '" + l.Account + "'"
			continue
		}
		if msg := e.locationError(l.Location, "not found"); msg != "" {
			l.Remarks = msg
			continue
		}
		l.Remarks = models.StatusReady
	}
}
