package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the side of a ledger entry.
type EntryType string

const (
	EntryRevenue EntryType = "revenue"
	EntryExpense EntryType = "expense"
)

// FinancialLog is an append-only ledger entry.
type FinancialLog struct {
	ID          string          `json:"id"`
	Type        EntryType       `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	FranchiseID *string         `json:"franchise_id"`
	AuctionID   *string         `json:"auction_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FinanceFilter narrows a ledger listing. Dates are YYYY-MM-DD, inclusive.
type FinanceFilter struct {
	FranchiseID string
	From        string
	To          string
}

// FinanceSummary totals a ledger slice.
type FinanceSummary struct {
	Revenue decimal.Decimal `json:"revenue"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Entries int             `json:"entries"`
}

// Summarize totals the given entries.
func Summarize(entries []FinancialLog) FinanceSummary {
	s := FinanceSummary{Revenue: decimal.Zero, Expense: decimal.Zero}
	for _, e := range entries {
		switch e.Type {
		case EntryRevenue:
			s.Revenue = s.Revenue.Add(e.Amount)
		case EntryExpense:
			s.Expense = s.Expense.Add(e.Amount)
		}
	}
	s.Balance = s.Revenue.Sub(s.Expense)
	s.Entries = len(entries)
	return s
}
