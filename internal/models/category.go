package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category
type Category struct {
	Base
	UserID string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string       `gorm:"not null" json:"name"`
	Type   CategoryType `gorm:"not null" json:"type"`
	Icon   string       `json:"icon"`
	Color  string       `json:"color"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
}
