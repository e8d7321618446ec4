// Package reconcile compares synced output rows against what QBO
// actually holds for the month. Results are written back as per-row
// statuses; nothing in the ledger or the sheet data is modified.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/syncer"
)

// AmountTolerance is the max difference for two amounts to count as
// equal.
const AmountTolerance = 0.01

// StatusNotFound marks a document the month's ledger query did not
// return, by id or by document number.
const StatusNotFound = "Not found in QBO"

// Ledger is the read-only slice of the QBO client reconciliation needs.
type Ledger interface {
	Query(ctx context.Context, realmID, entity, where string) ([]qbo.Document, error)
}

// RowStatus is the reconcile result for one output sheet row.
type RowStatus struct {
	Index  int
	Status string
}

// HasIssues reports whether any row status needs operator attention.
func HasIssues(statuses []RowStatus) bool {
	for _, s := range statuses {
		if strings.Contains(s.Status, "Mismatch") ||
			strings.Contains(s.Status, "Missing") ||
			strings.Contains(s.Status, "Not found") {
			return true
		}
	}
	return false
}

// Engine reconciles one company's output tabs against the ledger.
type Engine struct {
	logger *log.Logger
	ledger Ledger
}

// New builds an Engine.
func New(logger *log.Logger, ledger Ledger) *Engine {
	return &Engine{logger: logger.With("component", "reconcile"), ledger: ledger}
}

// fetchMonth loads all documents of an entity for the month and
// indexes them by id and by document number.
func (e *Engine) fetchMonth(ctx context.Context, realmID, entity string, month time.Time) (map[string]qbo.Document, map[string]qbo.Document, []qbo.Document, error) {
	start, end := syncer.MonthWindow(month)
	docs, err := e.ledger.Query(ctx, realmID, entity,
		fmt.Sprintf("TxnDate >= '%s' AND TxnDate <= '%s'", start, end))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to fetch %s for %s: %w", entity, start, err)
	}

	byID := make(map[string]qbo.Document, len(docs))
	byDoc := make(map[string]qbo.Document, len(docs))
	for _, d := range docs {
		if d.ID != "" {
			byID[d.ID] = d
		}
		if d.DocNumber != "" {
			byDoc[d.DocNumber] = d
		}
	}
	e.logger.Info("fetched ledger month", "entity", entity, "from", start, "to", end, "count", len(docs))
	return byID, byDoc, docs, nil
}

// amountsEqual compares within tolerance.
func amountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= AmountTolerance
}

// checkText appends a mismatch entry unless the two values agree. A
// qualified ledger value whose leaf equals the sheet value counts as
// agreement.
func checkText(errs []string, field, sheetVal, qboVal string) []string {
	s := strings.ToLower(strings.TrimSpace(sheetVal))
	q := strings.ToLower(strings.TrimSpace(qboVal))
	if s == q || strings.HasSuffix(q, ":"+s) {
		return errs
	}
	return append(errs, fmt.Sprintf("%s: '%s' != '%s'", field, sheetVal, qboVal))
}

// checkAmount appends a mismatch entry unless the amounts agree.
func checkAmount(errs []string, field string, sheetVal, qboVal float64) []string {
	if amountsEqual(sheetVal, qboVal) {
		return errs
	}
	return append(errs, fmt.Sprintf("%s: %.2f != %.2f", field, sheetVal, qboVal))
}

func sheetDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}
