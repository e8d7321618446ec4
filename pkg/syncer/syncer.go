// Package syncer posts ready output rows to QBO. Posting is idempotent
// on document number: anything already in the ledger is skipped, and a
// rejected row records the error and lets the rest of the batch run.
// Name→id resolution happens here at post time, not at transform time,
// so a mapping added after validation still lands.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

const docNumberChunk = 40

// Ledger is the slice of the QBO client the syncer needs.
type Ledger interface {
	Query(ctx context.Context, realmID, entity, where string) ([]qbo.Document, error)
	Create(ctx context.Context, realmID, entity string, payload any) (qbo.Document, error)
}

// RowUpdate is the write-back for one output sheet row, addressed by
// the row's index in the input slice.
type RowUpdate struct {
	Index  int
	Status string
	QBOID  string
	Link   string
}

// Outcome summarizes one category's sync batch.
type Outcome struct {
	Updates []RowUpdate
	Synced  int
	Skipped int
	Failed  int
}

// PartialFailure reports whether any row in the batch errored.
func (o Outcome) PartialFailure() bool { return o.Failed > 0 }

// Syncer posts documents for one QBO company at a time.
type Syncer struct {
	logger   *log.Logger
	ledger   Ledger
	resolver *resolver.Resolver
}

// New builds a Syncer over a ledger connection and the company's name
// resolver.
func New(logger *log.Logger, ledger Ledger, res *resolver.Resolver) *Syncer {
	return &Syncer{logger: logger.With("component", "syncer"), ledger: ledger, resolver: res}
}

// existingDocNumbers returns which of the given document numbers are
// already present in the ledger, queried in IN-list chunks.
func (s *Syncer) existingDocNumbers(ctx context.Context, realmID, entity string, numbers []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for i := 0; i < len(numbers); i += docNumberChunk {
		end := i + docNumberChunk
		if end > len(numbers) {
			end = len(numbers)
		}
		quoted := make([]string, 0, end-i)
		for _, n := range numbers[i:end] {
			quoted = append(quoted, "'"+strings.ReplaceAll(n, "'", "\\'")+"'")
		}
		docs, err := s.ledger.Query(ctx, realmID, entity, fmt.Sprintf("DocNumber IN (%s)", strings.Join(quoted, ",")))
		if err != nil {
			return nil, fmt.Errorf("failed to check existing %s numbers: %w", entity, err)
		}
		for _, d := range docs {
			existing[d.DocNumber] = true
		}
	}
	return existing, nil
}

// existingTransferRefs finds which refs already appear in transfer
// notes for the month. Transfers have no document-number field, so the
// ref lives in the PrivateNote and a note scan is the only dedupe.
func (s *Syncer) existingTransferRefs(ctx context.Context, realmID string, month time.Time, refs []string) (map[string]bool, error) {
	start, end := MonthWindow(month)
	docs, err := s.ledger.Query(ctx, realmID, "Transfer",
		fmt.Sprintf("TxnDate >= '%s' AND TxnDate <= '%s'", start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer notes: %w", err)
	}
	existing := make(map[string]bool)
	for _, ref := range refs {
		for _, d := range docs {
			if ref != "" && strings.Contains(d.PrivateNote, ref) {
				existing[ref] = true
				break
			}
		}
	}
	return existing, nil
}

// MonthWindow returns the first and last day of a month as QBO query
// dates.
func MonthWindow(month time.Time) (string, string) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02")
}

// DeepLink builds the QBO UI URL for a synced document.
func DeepLink(kind, id string) string {
	return fmt.Sprintf("https://app.qbo.intuit.com/app/%s?txnId=%s", kind, id)
}

func txnDate(d time.Time) string {
	if d.IsZero() {
		return time.Now().Format("2006-01-02")
	}
	return d.Format("2006-01-02")
}

func (s *Syncer) resolveAccount(name string) (string, error) {
	id := s.resolver.Find(resolver.Accounts, name)
	if id == "" {
		return "", fmt.Errorf("Account '%s' not found in QBO Mappings", name)
	}
	return id, nil
}

func (s *Syncer) optionalRef(kind resolver.Kind, name string) *qbo.Ref {
	if name == "" {
		return nil
	}
	if id := s.resolver.Find(kind, name); id != "" {
		return &qbo.Ref{Value: id}
	}
	return nil
}
