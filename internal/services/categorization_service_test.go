package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"granafacil/internal/ai"
	"granafacil/internal/models"
	"granafacil/internal/testutil"
)

type fakeExtractor struct {
	extraction *ai.Extraction
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) (*ai.Extraction, error) {
	return f.extraction, f.err
}

type fakeClassifier struct {
	suggestion *ai.Suggestion
	err        error
}

func (f *fakeClassifier) Classify(ctx context.Context, input ai.ClassifyInput) (*ai.Suggestion, error) {
	return f.suggestion, f.err
}

func TestProcessMessage(t *testing.T) {
	t.Run("happy_path", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		extractor := &fakeExtractor{extraction: &ai.Extraction{
			Description: "mercado",
			Amount:      decimal.NewFromInt(50),
			Type:        models.TransactionTypeExpense,
		}}
		classifier := &fakeClassifier{suggestion: &ai.Suggestion{
			CategoryID:   category.ID,
			CategoryName: category.Name,
			Confidence:   0.92,
			Reasoning:    "compra de supermercado",
		}}
		svc := NewCategorizationService(extractor, classifier,
			NewTransactionService(db), NewCategoryService(db), NewWhatsAppService(db))

		result := svc.ProcessMessage(context.Background(), user.ID, "Gastei 50 reais no mercado", "whatsapp")

		if !result.Success {
			t.Fatalf("expected success, got error %q", result.Error)
		}
		if result.Transaction == nil {
			t.Fatal("expected a transaction in the result")
		}
		if result.Transaction.Status != models.TransactionStatusCompleted {
			t.Errorf("expected completed transaction, got %s", result.Transaction.Status)
		}
		if result.Transaction.CategoryID == nil || *result.Transaction.CategoryID != category.ID {
			t.Error("expected the suggested category to be applied")
		}
		if result.Confidence != 0.92 {
			t.Errorf("expected confidence 0.92, got %v", result.Confidence)
		}

		// The inbound message is audited as processed.
		var message models.WhatsAppMessage
		testutil.AssertNoError(t, db.Where("user_id = ?", user.ID).First(&message).Error)
		if !message.Processed {
			t.Error("expected audited message to be marked processed")
		}
		if message.TransactionID == nil || *message.TransactionID != result.Transaction.ID {
			t.Error("expected audited message to reference the transaction")
		}
	})

	t.Run("extraction_failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		extractor := &fakeExtractor{err: errors.New("no transaction found in message")}
		svc := NewCategorizationService(extractor, &fakeClassifier{},
			NewTransactionService(db), NewCategoryService(db), NewWhatsAppService(db))

		result := svc.ProcessMessage(context.Background(), user.ID, "bom dia!", "whatsapp")

		if result.Success {
			t.Fatal("expected failure")
		}
		if result.Error != "Não consegui identificar uma transação nessa mensagem" {
			t.Errorf("unexpected error message: %q", result.Error)
		}

		var message models.WhatsAppMessage
		testutil.AssertNoError(t, db.Where("user_id = ?", user.ID).First(&message).Error)
		if message.Processed {
			t.Error("expected audited message to be marked unprocessed")
		}
	})

	t.Run("no_categories", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		extractor := &fakeExtractor{extraction: &ai.Extraction{
			Description: "mercado",
			Amount:      decimal.NewFromInt(50),
			Type:        models.TransactionTypeExpense,
		}}
		svc := NewCategorizationService(extractor, &fakeClassifier{},
			NewTransactionService(db), NewCategoryService(db), NewWhatsAppService(db))

		result := svc.ProcessMessage(context.Background(), user.ID, "Gastei 50 no mercado", "whatsapp")

		if result.Success {
			t.Fatal("expected failure")
		}
		if result.Error != "Nenhuma categoria encontrada para o usuário" {
			t.Errorf("unexpected error message: %q", result.Error)
		}

		// The extracted transaction is kept, pending and uncategorized.
		if result.Transaction == nil {
			t.Fatal("expected the pending transaction in the result")
		}
		var stored models.Transaction
		testutil.AssertNoError(t, db.Where("id = ?", result.Transaction.ID).First(&stored).Error)
		if stored.Status != models.TransactionStatusPending {
			t.Errorf("expected pending transaction, got %s", stored.Status)
		}
		if stored.CategoryID != nil {
			t.Error("expected uncategorized transaction")
		}
	})

	t.Run("ai_not_configured", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		svc := NewCategorizationService(nil, nil,
			NewTransactionService(db), NewCategoryService(db), NewWhatsAppService(db))

		result := svc.ProcessMessage(context.Background(), user.ID, "Gastei 50", "whatsapp")

		if result.Success {
			t.Fatal("expected failure")
		}
		if result.Error != "O assistente de IA não está configurado" {
			t.Errorf("unexpected error message: %q", result.Error)
		}
	})
}

func TestRecategorize(t *testing.T) {
	t.Run("reclassifies_existing_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		tx := testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, decimal.NewFromInt(50))

		classifier := &fakeClassifier{suggestion: &ai.Suggestion{
			CategoryID:   category.ID,
			CategoryName: category.Name,
			Confidence:   0.7,
		}}
		svc := NewCategorizationService(&fakeExtractor{}, classifier,
			NewTransactionService(db), NewCategoryService(db), NewWhatsAppService(db))

		result := svc.Recategorize(context.Background(), user.ID, tx.ID)

		if !result.Success {
			t.Fatalf("expected success, got error %q", result.Error)
		}
		if result.Transaction.CategoryID == nil || *result.Transaction.CategoryID != category.ID {
			t.Error("expected the suggested category to be applied")
		}
	})

	t.Run("transaction_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		svc := NewCategorizationService(&fakeExtractor{}, &fakeClassifier{},
			NewTransactionService(db), NewCategoryService(db), NewWhatsAppService(db))

		result := svc.Recategorize(context.Background(), user.ID, "00000000-0000-0000-0000-000000000000")

		if result.Success {
			t.Fatal("expected failure")
		}
		if result.Error != "Transação não encontrada" {
			t.Errorf("unexpected error message: %q", result.Error)
		}
	})

	t.Run("classification_failure_keeps_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		tx := testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, decimal.NewFromInt(50))

		classifier := &fakeClassifier{err: errors.New("model unavailable")}
		svc := NewCategorizationService(&fakeExtractor{}, classifier,
			NewTransactionService(db), NewCategoryService(db), NewWhatsAppService(db))

		result := svc.Recategorize(context.Background(), user.ID, tx.ID)

		if result.Success {
			t.Fatal("expected failure")
		}
		if result.Transaction == nil || result.Transaction.ID != tx.ID {
			t.Error("expected the transaction to be carried in the failure result")
		}
	})
}
