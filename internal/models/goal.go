package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalStatus represents the progress state of a savings goal
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
)

// Contribution is a single deposit towards a goal. Contributions are
// embedded in the parent goal row rather than stored as their own table.
type Contribution struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Contributions is the embedded, JSON-serialized contribution list.
type Contributions []Contribution

// Goal represents a savings goal with its embedded contributions.
// CurrentAmount is maintained as the sum of all contribution amounts;
// Version guards the read-modify-write on the contribution list with an
// optimistic compare-and-swap.
type Goal struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Title         string          `gorm:"not null" json:"title"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"current_amount"`
	Status        GoalStatus      `gorm:"not null;default:'active'" json:"status"`
	Contributions Contributions   `gorm:"serializer:json;type:jsonb" json:"contributions"`
	Version       int64           `gorm:"not null;default:0" json:"-"`
}

// Sum returns the total of all contribution amounts.
func (cs Contributions) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.Amount)
	}
	return total
}
