package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Transaction is a single income or expense entry owned by a user.
type Transaction struct {
	ID         string
	UserID     string
	CategoryID *string // nil once the category is deleted
	Kind       string
	Amount     decimal.Decimal
	Currency   string
	Note       string
	OccurredAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TransactionFilter narrows list queries. Zero values mean "no constraint".
type TransactionFilter struct {
	From       time.Time
	To         time.Time
	Kind       string
	CategoryID string
	Limit      int
	Offset     int
}

// CategoryTotal is one row of the summary aggregation.
type CategoryTotal struct {
	CategoryID   *string         `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Kind         string          `json:"kind"`
	Total        decimal.Decimal `json:"total"`
}

// MonthTotal aggregates income and expense for one calendar month.
type MonthTotal struct {
	Month   string          `json:"month"` // YYYY-MM
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Summary is the dashboard aggregation over a date range.
type Summary struct {
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Net        decimal.Decimal `json:"net"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []MonthTotal    `json:"byMonth"`
}
