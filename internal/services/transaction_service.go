package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "granafacil/internal/errors"
	"granafacil/internal/models"
	"granafacil/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction creates a new transaction for a user. The amount is
// stored unsigned; its sign is derived from the type at read time.
func (s *transactionService) CreateTransaction(
	userID, description string,
	amount decimal.Decimal,
	txType models.TransactionType,
	categoryID *string,
	status models.TransactionStatus,
	date time.Time,
) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if description == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}

	if date.IsZero() {
		date = time.Now()
	}
	if status == "" {
		status = models.TransactionStatusCompleted
	}

	// A supplied category must exist and belong to the user.
	if categoryID != nil && *categoryID != "" {
		if err := s.assertCategoryOwned(userID, *categoryID); err != nil {
			return nil, err
		}
	}

	transaction := &models.Transaction{
		UserID:          userID,
		Description:     description,
		Amount:          amount,
		Type:            txType,
		CategoryID:      categoryID,
		Status:          status,
		TransactionDate: date,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return transaction, nil
}

func applyTransactionFilters(db *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != "" {
		db = db.Where("category_id = ?", filter.CategoryID)
	}
	return db
}

// GetUserTransactions retrieves a paginated, filtered list of transactions,
// newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").
		Order("transaction_date desc, created_at desc").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRecentTransactions retrieves the most recently created transactions.
func (s *transactionService) GetRecentTransactions(userID string, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ?", userID).
		Preload("Category").
		Order("created_at desc").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).
		Preload("Category").
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// assertCategoryOwned verifies that a referenced category exists and
// belongs to the user.
func (s *transactionService) assertCategoryOwned(userID, categoryID string) error {
	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("id = ? AND user_id = ?", categoryID, userID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrCategoryNotFound
	}
	return nil
}

// UpdateTransaction applies a partial patch to a transaction by primary key.
func (s *transactionService) UpdateTransaction(userID, transactionID string, updates map[string]interface{}) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	// A re-pointed category must exist and belong to the user; an empty
	// value clears the link.
	if raw, ok := updates["category_id"]; ok {
		if id, _ := raw.(string); id != "" {
			if err := s.assertCategoryOwned(userID, id); err != nil {
				return nil, err
			}
		} else {
			updates["category_id"] = nil
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction removes a transaction by primary key.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBalanceSummary computes the lifetime balance over all completed
// transactions plus the current calendar month's income/expense split.
// The month boundary follows the server's local clock.
func (s *transactionService) GetBalanceSummary(userID string) (*BalanceSummary, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ? AND status = ?", userID, models.TransactionStatusCompleted).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	summary := &BalanceSummary{
		Balance:         decimal.Zero,
		MonthlyIncome:   decimal.Zero,
		MonthlyExpenses: decimal.Zero,
		MonthlyNet:      decimal.Zero,
	}

	for i := range transactions {
		t := &transactions[i]
		summary.Balance = summary.Balance.Add(t.BalanceContribution())

		if !sameMonth(t.TransactionDate, now) {
			continue
		}
		if t.Type == models.TransactionTypeIncome {
			summary.MonthlyIncome = summary.MonthlyIncome.Add(t.Amount)
		} else {
			summary.MonthlyExpenses = summary.MonthlyExpenses.Add(t.Amount.Abs())
		}
	}

	summary.MonthlyNet = summary.MonthlyIncome.Sub(summary.MonthlyExpenses)
	return summary, nil
}

// GetMonthlyReport breaks the current month's completed transactions
// down by category.
func (s *transactionService) GetMonthlyReport(userID string) (*MonthlyReport, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ? AND status = ?", userID, models.TransactionStatusCompleted).
		Preload("Category").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	report := &MonthlyReport{
		Month:    now.Format("2006-01"),
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}

	totals := make(map[string]*MonthlyCategoryTotal)
	var order []string

	for i := range transactions {
		t := &transactions[i]
		if !sameMonth(t.TransactionDate, now) {
			continue
		}

		if t.Type == models.TransactionTypeIncome {
			report.Income = report.Income.Add(t.Amount)
		} else {
			report.Expenses = report.Expenses.Add(t.Amount.Abs())
		}

		name := "Sem categoria"
		id := ""
		if t.Category != nil {
			name = t.Category.Name
			id = t.Category.ID
		}
		key := id + "/" + string(t.Type)
		entry, ok := totals[key]
		if !ok {
			entry = &MonthlyCategoryTotal{
				CategoryID:   id,
				CategoryName: name,
				Type:         string(t.Type),
				Total:        decimal.Zero,
			}
			totals[key] = entry
			order = append(order, key)
		}
		entry.Total = entry.Total.Add(t.Amount.Abs())
	}

	for _, key := range order {
		report.Categories = append(report.Categories, *totals[key])
	}
	return report, nil
}

// sameMonth reports whether both times fall in the same calendar month.
func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
