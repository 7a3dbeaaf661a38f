package models

import "time"

// Category groups transactions for reporting. Name+kind is unique per user.
type Category struct {
	ID        string
	UserID    string
	Name      string
	Kind      string // income or expense
	Color     string // hex color for the UI
	CreatedAt time.Time
}

// DefaultCategories returns the starter set seeded for every new account.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Salary", Kind: KindIncome, Color: "#2e7d32"},
		{Name: "Other Income", Kind: KindIncome, Color: "#66bb6a"},
		{Name: "Groceries", Kind: KindExpense, Color: "#ef6c00"},
		{Name: "Housing", Kind: KindExpense, Color: "#5d4037"},
		{Name: "Transport", Kind: KindExpense, Color: "#1565c0"},
		{Name: "Entertainment", Kind: KindExpense, Color: "#8e24aa"},
		{Name: "Other", Kind: KindExpense, Color: "#757575"},
	}
}
