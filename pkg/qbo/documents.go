package qbo

import "strings"

// Ref is a QBO entity reference.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// JournalDetail carries the journal-specific part of a line.
type JournalDetail struct {
	PostingType   string `json:"PostingType"`
	AccountRef    Ref    `json:"AccountRef"`
	DepartmentRef *Ref   `json:"DepartmentRef,omitempty"`
	ClassRef      *Ref   `json:"ClassRef,omitempty"`
}

// ExpenseDetail carries the account-based expense part of a line.
type ExpenseDetail struct {
	AccountRef Ref `json:"AccountRef"`
}

// Line is one line item of a QBO document.
type Line struct {
	ID            string         `json:"Id,omitempty"`
	Description   string         `json:"Description,omitempty"`
	Amount        float64        `json:"Amount"`
	DetailType    string         `json:"DetailType"`
	JournalDetail *JournalDetail `json:"JournalEntryLineDetail,omitempty"`
	ExpenseDetail *ExpenseDetail `json:"AccountBasedExpenseLineDetail,omitempty"`
}

// SignedAmount returns the line amount with the sheet sign convention:
// debit postings positive, credit postings negative.
func (l Line) SignedAmount() float64 {
	if l.JournalDetail != nil && strings.EqualFold(l.JournalDetail.PostingType, "Credit") {
		return -l.Amount
	}
	return l.Amount
}

// AccountName returns the display name on the line's account ref.
func (l Line) AccountName() string {
	if l.JournalDetail != nil {
		return l.JournalDetail.AccountRef.Name
	}
	if l.ExpenseDetail != nil {
		return l.ExpenseDetail.AccountRef.Name
	}
	return ""
}

// Document is the subset of a QBO record the pipeline reads back. The
// same shape covers JournalEntry, Purchase, Transfer and the mapping
// entities (Account, Department, Class, Vendor, PaymentMethod).
type Document struct {
	ID                 string `json:"Id"`
	SyncToken          string `json:"SyncToken"`
	DocNumber          string `json:"DocNumber"`
	TxnDate            string `json:"TxnDate"`
	TotalAmt           float64
	Amount             float64 // transfers carry a single Amount instead of TotalAmt
	PrivateNote        string
	Name               string
	FullyQualifiedName string
	AccountRef         *Ref `json:"AccountRef,omitempty"`
	CurrencyRef        *Ref `json:"CurrencyRef,omitempty"`
	Line               []Line
}

// DisplayName prefers the fully qualified name, matching how the chart
// of accounts is keyed in the mapping cache.
func (d Document) DisplayName() string {
	if d.FullyQualifiedName != "" {
		return d.FullyQualifiedName
	}
	return d.Name
}

// Payload shapes posted to QBO.

// JournalEntryPayload creates a journal entry.
type JournalEntryPayload struct {
	Line        []Line `json:"Line"`
	DocNumber   string `json:"DocNumber"`
	TxnDate     string `json:"TxnDate"`
	PrivateNote string `json:"PrivateNote,omitempty"`
	CurrencyRef Ref    `json:"CurrencyRef"`
}

// PurchasePayload creates an expense.
type PurchasePayload struct {
	AccountRef    Ref    `json:"AccountRef"`
	PaymentType   string `json:"PaymentType"`
	EntityRef     *Ref   `json:"EntityRef,omitempty"`
	DocNumber     string `json:"DocNumber"`
	TxnDate       string `json:"TxnDate"`
	CurrencyRef   Ref    `json:"CurrencyRef"`
	DepartmentRef *Ref   `json:"DepartmentRef,omitempty"`
	PrivateNote   string `json:"PrivateNote,omitempty"`
	Line          []Line `json:"Line"`
}

// TransferPayload creates an inter-account transfer.
type TransferPayload struct {
	TxnDate        string `json:"TxnDate"`
	Amount         float64 `json:"Amount"`
	FromAccountRef Ref    `json:"FromAccountRef"`
	ToAccountRef   Ref    `json:"ToAccountRef"`
	PrivateNote    string `json:"PrivateNote,omitempty"`
	CurrencyRef    Ref    `json:"CurrencyRef"`
	DocNumber      string `json:"DocNumber,omitempty"`
}
