package services

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "granafacil/internal/errors"
	"granafacil/internal/models"
	"granafacil/internal/uuid"
)

// goalService handles savings-goal business logic. Contributions live
// embedded in the goal row, so every contribution write is a
// read-modify-write guarded by an optimistic version check.
type goalService struct {
	db *gorm.DB
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB) GoalServicer {
	return &goalService{db: db}
}

// CreateGoal creates a new savings goal.
func (s *goalService) CreateGoal(userID, title string, targetAmount decimal.Decimal) (*models.Goal, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal title is required")
	}
	if targetAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}

	goal := &models.Goal{
		UserID:        userID,
		Title:         title,
		TargetAmount:  targetAmount,
		CurrentAmount: decimal.Zero,
		Status:        models.GoalStatusActive,
		Contributions: models.Contributions{},
	}

	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals retrieves all goals for a user, newest first.
func (s *goalService) GetUserGoals(userID string) ([]models.Goal, error) {
	var goals []models.Goal
	if err := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range goals {
		sortContributions(goals[i].Contributions)
	}
	return goals, nil
}

// GetGoalByID retrieves a goal by ID for a specific user. Contributions
// are returned newest-first regardless of storage order.
func (s *goalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	sortContributions(goal.Contributions)
	return &goal, nil
}

// UpdateGoal applies a partial patch to a goal by primary key.
func (s *goalService) UpdateGoal(userID, goalID string, updates map[string]interface{}) (*models.Goal, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.db.Model(goal).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetGoalByID(userID, goalID)
}

// DeleteGoal removes a goal (and its embedded contributions) by primary key.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AddContribution appends a contribution to the goal and recomputes
// current_amount as the sum of all contributions.
func (s *goalService) AddContribution(userID, goalID string, amount decimal.Decimal, notes string) (*models.Goal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "contribution amount must be greater than zero")
	}

	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	contribution := models.Contribution{
		ID:        uuid.New(),
		Amount:    amount,
		Notes:     notes,
		CreatedAt: time.Now(),
	}
	contributions := append(goal.Contributions, contribution)

	return s.writeContributions(userID, goal, contributions, contributions.Sum())
}

// DeleteContribution removes a contribution by id. The new
// current_amount is clamped at zero so a stale stored total can never
// drive it negative.
func (s *goalService) DeleteContribution(userID, goalID, contributionID string) (*models.Goal, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, c := range goal.Contributions {
		if c.ID == contributionID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, apperrors.ErrContributionNotFound
	}

	deleted := goal.Contributions[index]
	contributions := make(models.Contributions, 0, len(goal.Contributions)-1)
	contributions = append(contributions, goal.Contributions[:index]...)
	contributions = append(contributions, goal.Contributions[index+1:]...)

	newAmount := goal.CurrentAmount.Sub(deleted.Amount)
	if newAmount.IsNegative() {
		newAmount = decimal.Zero
	}

	return s.writeContributions(userID, goal, contributions, newAmount)
}

// GetRecentGoals retrieves the most recently created goals.
func (s *goalService) GetRecentGoals(userID string, limit int) ([]models.Goal, error) {
	var goals []models.Goal
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goals, nil
}

// writeContributions writes the whole contribution list and derived
// fields back to the goal row, compare-and-swapped on the version
// column. A concurrent writer bumps the version first and this write
// matches zero rows, surfacing a conflict instead of silently dropping
// an update.
func (s *goalService) writeContributions(userID string, goal *models.Goal, contributions models.Contributions, currentAmount decimal.Decimal) (*models.Goal, error) {
	status := models.GoalStatusActive
	if currentAmount.GreaterThanOrEqual(goal.TargetAmount) {
		status = models.GoalStatusCompleted
	}

	// Struct-based update so the JSON serializer handles the embedded
	// contribution list; Select forces the write even for zero values.
	result := s.db.Model(&models.Goal{}).
		Where("id = ? AND user_id = ? AND version = ?", goal.ID, userID, goal.Version).
		Select("contributions", "current_amount", "status", "version").
		Updates(models.Goal{
			Contributions: contributions,
			CurrentAmount: currentAmount,
			Status:        status,
			Version:       goal.Version + 1,
		})
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrGoalConflict
	}

	return s.GetGoalByID(userID, goal.ID)
}

// sortContributions orders contributions newest-first.
func sortContributions(contributions models.Contributions) {
	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].CreatedAt.After(contributions[j].CreatedAt)
	})
}
