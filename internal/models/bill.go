package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillType distinguishes money owed from money expected.
type BillType string

const (
	BillTypePayable    BillType = "payable"
	BillTypeReceivable BillType = "receivable"
)

// BillStatus represents the payment state of a bill
type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusPaid    BillStatus = "paid"
)

// DueState classifies a pending bill against the current date.
type DueState string

const (
	DueStateOverdue  DueState = "overdue"
	DueStateDueToday DueState = "due_today"
	DueStateUpcoming DueState = "upcoming"
)

// Bill represents a bill payable or receivable
type Bill struct {
	Base
	UserID  string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Title   string          `gorm:"not null" json:"title"`
	Type    BillType        `gorm:"not null" json:"type"`
	Amount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate time.Time       `gorm:"not null" json:"due_date"`
	Status  BillStatus      `gorm:"not null;default:'pending'" json:"status"`
	PaidAt  *time.Time      `json:"paid_at,omitempty"`
}

// DueStateAt classifies the bill's due date against the given day.
// Paid bills are always upcoming (they no longer demand attention).
func (b *Bill) DueStateAt(now time.Time) DueState {
	if b.Status == BillStatusPaid {
		return DueStateUpcoming
	}
	y1, m1, d1 := b.DueDate.Date()
	y2, m2, d2 := now.Date()
	switch {
	case y1 == y2 && m1 == m2 && d1 == d2:
		return DueStateDueToday
	case b.DueDate.Before(now):
		return DueStateOverdue
	default:
		return DueStateUpcoming
	}
}
