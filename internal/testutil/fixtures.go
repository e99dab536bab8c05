package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"granafacil/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		FullName: fmt.Sprintf("Test User %d", counter.Load()),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a completed transaction of the given type and amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount decimal.Decimal) *models.Transaction {
	t.Helper()
	return CreateTestTransactionAt(t, db, userID, txType, amount, time.Now())
}

// CreateTestTransactionAt creates a completed transaction dated at the given time.
func CreateTestTransactionAt(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:          userID,
		Description:     fmt.Sprintf("Test Transaction %d", nextID()),
		Amount:          amount,
		Type:            txType,
		Status:          models.TransactionStatusCompleted,
		TransactionDate: date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBill creates a pending bill due at the given time.
func CreateTestBill(t *testing.T, db *gorm.DB, userID string, billType models.BillType, amount decimal.Decimal, dueDate time.Time) *models.Bill {
	t.Helper()

	bill := &models.Bill{
		UserID:  userID,
		Title:   fmt.Sprintf("Test Bill %d", nextID()),
		Type:    billType,
		Amount:  amount,
		DueDate: dueDate,
		Status:  models.BillStatusPending,
	}
	if err := db.Create(bill).Error; err != nil {
		t.Fatalf("failed to create test bill: %v", err)
	}
	return bill
}

// CreateTestGoal creates an active goal with no contributions.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, targetAmount decimal.Decimal) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:        userID,
		Title:         fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  targetAmount,
		CurrentAmount: decimal.Zero,
		Status:        models.GoalStatusActive,
		Contributions: models.Contributions{},
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// CreateTestWhatsAppLink creates an active link between a user and a JID.
func CreateTestWhatsAppLink(t *testing.T, db *gorm.DB, userID, jid string) *models.WhatsAppLink {
	t.Helper()

	link := &models.WhatsAppLink{
		UserID:      userID,
		WhatsAppJID: jid,
		PushName:    fmt.Sprintf("Test Contact %d", nextID()),
		IsActive:    true,
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("failed to create test whatsapp link: %v", err)
	}
	return link
}
