package transform

import (
	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/money"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// DefaultPaymentAccount is the fallback credit-side account for rows
// whose bank column is blank.
const DefaultPaymentAccount = "Payment Gateway - PH"

// processExpenses turns outgoing rows into single-line expense
// documents. Amounts arrive negative (money out) and are stored
// positive on the expense line.
func (e *Engine) processExpenses(rows []models.RawRow, in Input) ([]models.ExpenseRow, int64) {
	m := newMinter(in.LastExpenseNo, in.Preserved.Expenses)

	out := make([]models.ExpenseRow, 0, len(rows))
	for _, row := range rows {
		accountCr := row.AccountFrom
		if accountCr == "" {
			accountCr = DefaultPaymentAccount
		}
		date := row.Date
		refNo := m.mint(row.No, func(seq int64) string {
			return ExpenseNumber(in.Country, date, seq)
		})

		exp := models.ExpenseRow{
			No:                 row.No,
			RefNo:              refNo,
			AccountCr:          accountCr,
			Payee:              "Dummy",
			Memo:               row.ItemDescription,
			PaymentDate:        date,
			PaymentMethod:      "Cash",
			ExpenseAccount:     row.Type,
			ExpenseDescription: row.ItemDescription,
			Amount:             money.Round2(-row.USDQBO),
			Currency:           "USD",
			Location:           e.resolver.Replace(resolver.Locations, row.Location),
		}
		exp.Remarks = e.validateExpense(exp)
		out = append(out, exp)
	}
	return out, m.last
}

func (e *Engine) validateExpense(exp models.ExpenseRow) string {
	if exp.AccountCr == "" {
		return "ERROR | Missing Source Account"
	}
	if exp.ExpenseAccount == "" {
		return "ERROR | Missing Expense Account"
	}
	if exp.PaymentDate.IsZero() {
		return "ERROR | Missing Date"
	}
	if e.resolver.Find(resolver.Accounts, exp.AccountCr) == "" {
		return "ERROR | Source Account not in QBO: '" + exp.AccountCr + "'"
	}
	if e.resolver.Find(resolver.Accounts, exp.ExpenseAccount) == "" {
		return "ERROR | Expense Account not in QBO: '" + exp.ExpenseAccount + "'"
	}
	if msg := e.locationError(exp.Location, "not"); msg != "" {
		return msg
	}
	return models.StatusReady
}
