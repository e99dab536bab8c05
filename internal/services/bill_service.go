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

// billService handles bill-related business logic.
type billService struct {
	db *gorm.DB
}

// NewBillService creates a new BillServicer.
func NewBillService(db *gorm.DB) BillServicer {
	return &billService{db: db}
}

// CreateBill creates a new bill payable or receivable.
func (s *billService) CreateBill(userID, title string, billType models.BillType, amount decimal.Decimal, dueDate time.Time) (*models.Bill, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "bill title is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if dueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}

	bill := &models.Bill{
		UserID:  userID,
		Title:   title,
		Type:    billType,
		Amount:  amount,
		DueDate: dueDate,
		Status:  models.BillStatusPending,
	}

	if err := s.db.Create(bill).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return bill, nil
}

// GetUserBills retrieves a paginated, filtered list of bills ordered by
// due date, each annotated with its overdue/due-today classification.
func (s *billService) GetUserBills(userID string, page pagination.PageRequest, filter BillFilter) (*pagination.PageResponse[BillWithState], error) {
	page.Defaults()

	base := s.db.Model(&models.Bill{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		base = base.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		base = base.Where("status = ?", filter.Status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var bills []models.Bill
	if err := base.Order("due_date asc").
		Scopes(pagination.Paginate(page)).
		Find(&bills).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	annotated := make([]BillWithState, 0, len(bills))
	for _, bill := range bills {
		annotated = append(annotated, BillWithState{Bill: bill, DueState: bill.DueStateAt(now)})
	}

	result := pagination.NewPageResponse(annotated, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBillByID retrieves a bill by ID for a specific user
func (s *billService) GetBillByID(userID, billID string) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.Where("id = ? AND user_id = ?", billID, userID).First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBillNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &bill, nil
}

// UpdateBill applies a partial patch to a bill by primary key.
func (s *billService) UpdateBill(userID, billID string, updates map[string]interface{}) (*models.Bill, error) {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.db.Model(bill).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetBillByID(userID, billID)
}

// DeleteBill removes a bill by primary key.
func (s *billService) DeleteBill(userID, billID string) error {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(bill).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// MarkPaid marks a bill as paid and stamps the payment time. Marking an
// already-paid bill is a no-op.
func (s *billService) MarkPaid(userID, billID string) (*models.Bill, error) {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return nil, err
	}

	if bill.Status == models.BillStatusPaid {
		return bill, nil
	}

	now := time.Now()
	if err := s.db.Model(bill).Updates(map[string]interface{}{
		"status":  models.BillStatusPaid,
		"paid_at": now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetBillByID(userID, billID)
}

// GetRecentPaidBills retrieves the most recently paid bills.
func (s *billService) GetRecentPaidBills(userID string, limit int) ([]models.Bill, error) {
	var bills []models.Bill
	if err := s.db.Where("user_id = ? AND status = ?", userID, models.BillStatusPaid).
		Order("paid_at desc").
		Limit(limit).
		Find(&bills).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return bills, nil
}
