package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialBatch is one bundle of contributions posted together.
type FinancialBatch struct {
	Meta
	Origin

	Name          string
	Status        string
	ControlAmount decimal.Decimal
	StartDate     *time.Time
	EndDate       *time.Time
	CampusID      int64
}

// Batch statuses.
const (
	BatchStatusOpen   = "open"
	BatchStatusClosed = "closed"
)

// Transaction source types.
const (
	CurrencyTypeCash   = "cash"
	CurrencyTypeCheck  = "check"
	CurrencyTypeCard   = "card"
	CurrencyTypeACH    = "ach"
	CurrencyTypeOnline = "online"
)

// FinancialTransaction is one contribution.
type FinancialTransaction struct {
	Meta
	Origin

	BatchID          int64
	AuthorizedPerson int64 // person id of the contributor, 0 when unknown
	TransactionDate  *time.Time
	CurrencyType     string
	CheckNumber      string
	Summary          string

	Details []FinancialTransactionDetail
	Refund  *FinancialTransactionRefund
}

// FinancialTransactionDetail allocates part of a transaction to a fund.
type FinancialTransactionDetail struct {
	Meta

	TransactionID int64
	AccountID     int64
	Amount        decimal.Decimal
	Summary       string
}

// FinancialTransactionRefund marks a transaction as refunded.
// Negative-amount source rows become a refund of the matching positive
// transaction.
type FinancialTransactionRefund struct {
	Meta

	TransactionID int64
	Reason        string
}

// FinancialPledge is a commitment to give to a fund over a date range.
type FinancialPledge struct {
	Meta
	Origin

	PersonID    int64
	AccountID   int64
	TotalAmount decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Frequency   string
}

// FinancialAccount is a fund in the destination fund tree. Sub-funds carry
// the parent fund's id; the first sub-fund seen under a flat fund promotes
// that fund to a parent.
type FinancialAccount struct {
	Meta
	Origin

	Name       string
	PublicName string
	ParentID   int64 // 0 for top-level funds
	CampusID   int64
	IsActive   bool
}

// BankAccount is a saved bank account fingerprint used to match ACH
// contributions to people across imports. The fingerprint is a one-way
// hash of routing+account number; raw numbers are never persisted.
type BankAccount struct {
	Meta
	Origin

	PersonID    int64
	Fingerprint string
}
