package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"granafacil/internal/models"
	"granafacil/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, fullName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	EnsureProfile(id, email, fullName string) *models.User
	VerifyPassword(user *models.User, password string) bool
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, icon, color string) (*models.Category, error)
	GetUserCategories(userID string) ([]models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Type       models.TransactionType
	Status     models.TransactionStatus
	CategoryID string
}

// BalanceSummary is the derived balance view: lifetime balance over all
// completed transactions plus the current calendar month split by type.
type BalanceSummary struct {
	Balance         decimal.Decimal `json:"balance"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income"`
	MonthlyExpenses decimal.Decimal `json:"monthly_expenses"`
	MonthlyNet      decimal.Decimal `json:"monthly_net"`
}

// MonthlyCategoryTotal is one category's share of the current month.
type MonthlyCategoryTotal struct {
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name"`
	Type         string          `json:"type"`
	Total        decimal.Decimal `json:"total"`
}

// MonthlyReport is the per-category breakdown of the current month.
type MonthlyReport struct {
	Month      string                 `json:"month"`
	Income     decimal.Decimal        `json:"income"`
	Expenses   decimal.Decimal        `json:"expenses"`
	Categories []MonthlyCategoryTotal `json:"categories"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, description string, amount decimal.Decimal, txType models.TransactionType, categoryID *string, status models.TransactionStatus, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetRecentTransactions(userID string, limit int) ([]models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, updates map[string]interface{}) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetBalanceSummary(userID string) (*BalanceSummary, error)
	GetMonthlyReport(userID string) (*MonthlyReport, error)
}

// BillFilter narrows bill listings.
type BillFilter struct {
	Type   models.BillType
	Status models.BillStatus
}

// BillWithState is a bill annotated with its due-date classification.
type BillWithState struct {
	models.Bill
	DueState models.DueState `json:"due_state"`
}

// BillServicer defines the contract for bill-related business logic.
type BillServicer interface {
	CreateBill(userID, title string, billType models.BillType, amount decimal.Decimal, dueDate time.Time) (*models.Bill, error)
	GetUserBills(userID string, page pagination.PageRequest, filter BillFilter) (*pagination.PageResponse[BillWithState], error)
	GetBillByID(userID, billID string) (*models.Bill, error)
	UpdateBill(userID, billID string, updates map[string]interface{}) (*models.Bill, error)
	DeleteBill(userID, billID string) error
	MarkPaid(userID, billID string) (*models.Bill, error)
	GetRecentPaidBills(userID string, limit int) ([]models.Bill, error)
}

// GoalServicer defines the contract for goal-related business logic.
type GoalServicer interface {
	CreateGoal(userID, title string, targetAmount decimal.Decimal) (*models.Goal, error)
	GetUserGoals(userID string) ([]models.Goal, error)
	GetGoalByID(userID, goalID string) (*models.Goal, error)
	UpdateGoal(userID, goalID string, updates map[string]interface{}) (*models.Goal, error)
	DeleteGoal(userID, goalID string) error
	AddContribution(userID, goalID string, amount decimal.Decimal, notes string) (*models.Goal, error)
	DeleteContribution(userID, goalID, contributionID string) (*models.Goal, error)
	GetRecentGoals(userID string, limit int) ([]models.Goal, error)
}

// ActivityServicer defines the contract for the activity feed aggregator.
type ActivityServicer interface {
	GetRecentActivity(userID string) ([]ActivityItem, error)
}

// WhatsAppServicer defines the contract for WhatsApp linking and the
// inbound message audit trail.
type WhatsAppServicer interface {
	GetLinkByUserID(userID string) (*models.WhatsAppLink, error)
	GetLinkByJID(jid string) (*models.WhatsAppLink, error)
	GenerateLinkCode(userID string) (*models.WhatsAppLink, error)
	CompleteLink(linkCode, jid, pushName string) (*models.WhatsAppLink, error)
	Unlink(userID string) error
	RecordInbound(jid string) error
	LogMessage(userID, text, sender, messageType string, processed bool, transactionID *string) (*models.WhatsAppMessage, error)
}

// CategorizationServicer runs the AI transaction-categorization pipeline.
type CategorizationServicer interface {
	ProcessMessage(ctx context.Context, userID, text, sender string) *CategorizationResult
	Recategorize(ctx context.Context, userID, transactionID string) *CategorizationResult
}
