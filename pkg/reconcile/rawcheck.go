package reconcile

import (
	"fmt"
	"math"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
)

// RawCheckTolerance allows for rounding drift between a raw amount and
// the output rows derived from it.
const RawCheckTolerance = 0.05

// Raw check statuses.
const (
	RawSkipped      = "Skipped"
	RawMissingInRaw = "Unmatched: Missing in Raw"
)

// RawCheck verifies that every output document still traces back to its
// raw source row. Per source No the output amount is the largest
// absolute amount across any derived line; it must agree with the raw
// canonical amount within tolerance. Output rows whose No is absent
// from the raw tab are flagged; raw rows that produced no output are
// skipped.
func RawCheck(raw []models.RawRow, journals []models.JournalLine, expenses []models.ExpenseRow, transfers []models.TransferRow) map[int64]string {
	rawAmounts := make(map[int64]float64, len(raw))
	for _, r := range raw {
		rawAmounts[r.No] = math.Abs(r.USDQBO)
	}

	outAmounts := make(map[int64]float64)
	record := func(no int64, amount float64) {
		if a := math.Abs(amount); a > outAmounts[no] {
			outAmounts[no] = a
		}
	}
	for _, l := range journals {
		record(l.No, l.Amount)
	}
	for _, e := range expenses {
		record(e.No, e.Amount)
	}
	for _, t := range transfers {
		record(t.No, t.Amount)
	}

	results := make(map[int64]string, len(rawAmounts))
	for no, rawAmt := range rawAmounts {
		sheetAmt, produced := outAmounts[no]
		if !produced {
			results[no] = RawSkipped
			continue
		}
		if math.Abs(rawAmt-sheetAmt) <= RawCheckTolerance {
			results[no] = models.ReconcileMatched
		} else {
			results[no] = fmt.Sprintf("Unmatched: Amt Diff (%.2f vs %.2f)", rawAmt, sheetAmt)
		}
	}
	for no := range outAmounts {
		if _, inRaw := rawAmounts[no]; !inRaw {
			results[no] = RawMissingInRaw
		}
	}
	return results
}
