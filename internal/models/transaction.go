package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction represents a financial transaction in the system.
// Amount is stored unsigned; the sign is implied by Type when computing
// balances (income adds, expense subtracts).
type Transaction struct {
	Base
	UserID          string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Description     string            `gorm:"not null" json:"description"`
	Amount          decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type            TransactionType   `gorm:"not null" json:"type"`
	CategoryID      *string           `gorm:"type:uuid" json:"category_id,omitempty"`
	Status          TransactionStatus `gorm:"not null;default:'pending'" json:"status"`
	TransactionDate time.Time         `gorm:"not null" json:"transaction_date"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// BalanceContribution returns the signed effect of the transaction on
// the user's balance: +amount for income, -|amount| for expense.
func (t *Transaction) BalanceContribution() decimal.Decimal {
	if t.Type == TransactionTypeIncome {
		return t.Amount
	}
	return t.Amount.Abs().Neg()
}
