// Package transform turns canonical raw rows into QBO-ready output
// documents: journal lines, expenses and transfers, each with a minted
// document number and a validation status in the Remarks field.
// Validation failures are data, not errors; a bad row is flagged and
// the rest of the batch continues.
package transform

import (
	"github.com/charmbracelet/log"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/money"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// Input is one transform batch for a single {client, country, month}
// job. Counters are the last sequence values already consumed; the
// preserved map re-issues document numbers to retried rows.
type Input struct {
	Rows           []models.RawRow
	Country        string
	LastJournalNo  int64
	LastExpenseNo  int64
	LastTransferNo int64
	Preserved      models.PreservedIDs
}

// Result carries the generated documents and the advanced counters.
// MaxRowProcessed is the highest source No seen, for the control
// sheet's Last Processed Row cell.
type Result struct {
	Journals        []models.JournalLine
	Expenses        []models.ExpenseRow
	Transfers       []models.TransferRow
	LastJournalNo   int64
	LastExpenseNo   int64
	LastTransferNo  int64
	MaxRowProcessed int64
}

// Engine routes rows by method and produces validated output documents.
type Engine struct {
	logger   *log.Logger
	resolver *resolver.Resolver
}

// New builds an Engine over a company's name resolver.
func New(logger *log.Logger, res *resolver.Resolver) *Engine {
	return &Engine{logger: logger.With("component", "transform"), resolver: res}
}

// Transform processes one batch. Rows flagged for exclusion, rows with
// no category and rows whose amount rounds to zero are dropped before
// routing; the method cell is decoded once per row.
func (e *Engine) Transform(in Input) Result {
	res := Result{
		LastJournalNo:  in.LastJournalNo,
		LastExpenseNo:  in.LastExpenseNo,
		LastTransferNo: in.LastTransferNo,
	}

	var journals, reclass, expenses, transfers []models.RawRow
	for _, row := range in.Rows {
		if row.No > res.MaxRowProcessed {
			res.MaxRowProcessed = row.No
		}
		if row.Excluded() || row.Category == "" || money.IsZero(row.USDQBO) {
			continue
		}
		switch row.Method {
		case models.MethodJournal:
			journals = append(journals, row)
		case models.MethodReclass:
			reclass = append(reclass, row)
		case models.MethodExpense:
			if row.InOut < 0 {
				expenses = append(expenses, row)
			}
		case models.MethodTransfer:
			transfers = append(transfers, row)
		}
	}

	res.Journals, res.LastJournalNo = e.processJournals(journals, reclass, in)
	res.Expenses, res.LastExpenseNo = e.processExpenses(expenses, in)
	res.Transfers, res.LastTransferNo = e.processTransfers(transfers, in)

	e.logger.Info("transform complete",
		"country", in.Country,
		"journal_lines", len(res.Journals),
		"expenses", len(res.Expenses),
		"transfers", len(res.Transfers),
		"max_row", res.MaxRowProcessed)
	return res
}

// locationError validates an optional location name. Empty is fine.
// The verb differs between the journal and expense/transfer paths
// because existing sheets expect the historical wording.
func (e *Engine) locationError(name, verb string) string {
	if name == "" {
		return ""
	}
	if e.resolver.Find(resolver.Locations, name) == "" {
		return "ERROR | Location " + verb + " in QBO: '" + name + "'"
	}
	return ""
}
