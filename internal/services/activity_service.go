package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"granafacil/internal/models"
)

const (
	activityTransactionLimit = 5
	activityBillLimit        = 3
	activityGoalLimit        = 3
	activityFeedLimit        = 8
)

// ActivityItem is one entry of the unified activity feed. Purely a
// read-side projection, never persisted.
type ActivityItem struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Icon        string          `json:"icon"`
	Color       string          `json:"color"`
}

// activityService merges the most recently changed entities into one
// reverse-chronological feed.
type activityService struct {
	transactions TransactionServicer
	bills        BillServicer
	goals        GoalServicer
}

// NewActivityService creates a new ActivityServicer.
func NewActivityService(transactions TransactionServicer, bills BillServicer, goals GoalServicer) ActivityServicer {
	return &activityService{
		transactions: transactions,
		bills:        bills,
		goals:        goals,
	}
}

// NewActivityServiceFromDB wires an activity service directly over a database handle.
func NewActivityServiceFromDB(db *gorm.DB) ActivityServicer {
	return NewActivityService(NewTransactionService(db), NewBillService(db), NewGoalService(db))
}

// GetRecentActivity merges recent transactions, paid bills, and goals
// into a single feed sorted by timestamp descending, truncated to the
// feed limit.
func (s *activityService) GetRecentActivity(userID string) ([]ActivityItem, error) {
	transactions, err := s.transactions.GetRecentTransactions(userID, activityTransactionLimit)
	if err != nil {
		return nil, err
	}
	bills, err := s.bills.GetRecentPaidBills(userID, activityBillLimit)
	if err != nil {
		return nil, err
	}
	goals, err := s.goals.GetRecentGoals(userID, activityGoalLimit)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(transactions)+len(bills)+len(goals))

	for i := range transactions {
		t := &transactions[i]
		icon, color := "arrow-down", "#ef4444"
		if t.Type == models.TransactionTypeIncome {
			icon, color = "arrow-up", "#22c55e"
		}
		title := "Despesa registrada"
		if t.Type == models.TransactionTypeIncome {
			title = "Receita registrada"
		}
		items = append(items, ActivityItem{
			ID:          t.ID,
			Type:        "transaction",
			Title:       title,
			Description: t.Description,
			Amount:      t.BalanceContribution(),
			Timestamp:   t.CreatedAt,
			Icon:        icon,
			Color:       color,
		})
	}

	for i := range bills {
		b := &bills[i]
		ts := b.UpdatedAt
		if b.PaidAt != nil {
			ts = *b.PaidAt
		}
		items = append(items, ActivityItem{
			ID:          b.ID,
			Type:        "bill",
			Title:       "Conta paga",
			Description: b.Title,
			Amount:      b.Amount,
			Timestamp:   ts,
			Icon:        "receipt",
			Color:       "#3b82f6",
		})
	}

	for i := range goals {
		g := &goals[i]
		items = append(items, ActivityItem{
			ID:          g.ID,
			Type:        "goal",
			Title:       "Meta criada",
			Description: g.Title,
			Amount:      g.TargetAmount,
			Timestamp:   g.CreatedAt,
			Icon:        "target",
			Color:       "#a855f7",
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	if len(items) > activityFeedLimit {
		items = items[:activityFeedLimit]
	}
	return items, nil
}
