package services

import (
	"context"
	"time"

	"granafacil/internal/ai"
	"granafacil/internal/logger"
	"granafacil/internal/models"
)

// CategorizationResult is the discriminated outcome of the message
// pipeline. Success carries the persisted transaction and the AI
// suggestion; failure carries a user-presentable message instead. The
// pipeline never returns a Go error so callers always have something to
// relay back to the sender.
type CategorizationResult struct {
	Success      bool                `json:"success"`
	Error        string              `json:"error,omitempty"`
	Transaction  *models.Transaction `json:"transaction,omitempty"`
	CategoryName string              `json:"category_name,omitempty"`
	Confidence   float64             `json:"confidence,omitempty"`
	Reasoning    string              `json:"reasoning,omitempty"`
}

// categorizationService runs natural-language text through extraction
// and classification, persisting a transaction along the way.
type categorizationService struct {
	extractor    ai.Extractor
	classifier   ai.Classifier
	transactions TransactionServicer
	categories   CategoryServicer
	whatsapp     WhatsAppServicer
}

// NewCategorizationService creates a new CategorizationServicer.
func NewCategorizationService(
	extractor ai.Extractor,
	classifier ai.Classifier,
	transactions TransactionServicer,
	categories CategoryServicer,
	whatsapp WhatsAppServicer,
) CategorizationServicer {
	return &categorizationService{
		extractor:    extractor,
		classifier:   classifier,
		transactions: transactions,
		categories:   categories,
		whatsapp:     whatsapp,
	}
}

// ProcessMessage runs the full pipeline over a free-form message:
// extract a transaction, persist it pending, classify it against the
// user's categories, then complete it with the suggested category. The
// inbound message is always logged to the audit trail, marked processed
// only when a transaction came out the other end.
func (s *categorizationService) ProcessMessage(ctx context.Context, userID, text, sender string) *CategorizationResult {
	log := logger.Get()

	if s.extractor == nil || s.classifier == nil {
		s.audit(userID, text, sender, false, nil)
		return &CategorizationResult{
			Success: false,
			Error:   "O assistente de IA não está configurado",
		}
	}

	extraction, err := s.extractor.Extract(ctx, text)
	if err != nil {
		log.Warnw("extraction failed", "user_id", userID, "error", err)
		s.audit(userID, text, sender, false, nil)
		return &CategorizationResult{
			Success: false,
			Error:   "Não consegui identificar uma transação nessa mensagem",
		}
	}

	transaction, err := s.transactions.CreateTransaction(
		userID,
		extraction.Description,
		extraction.Amount,
		extraction.Type,
		nil,
		models.TransactionStatusPending,
		time.Now(),
	)
	if err != nil {
		log.Errorw("failed to persist extracted transaction", "user_id", userID, "error", err)
		s.audit(userID, text, sender, false, nil)
		return &CategorizationResult{
			Success: false,
			Error:   "Não foi possível salvar a transação",
		}
	}

	result := s.classifyAndComplete(ctx, userID, transaction)
	s.audit(userID, text, sender, result.Success, &transaction.ID)
	return result
}

// Recategorize re-runs classification for an existing transaction,
// skipping extraction and the audit trail.
func (s *categorizationService) Recategorize(ctx context.Context, userID, transactionID string) *CategorizationResult {
	if s.classifier == nil {
		return &CategorizationResult{
			Success: false,
			Error:   "O assistente de IA não está configurado",
		}
	}

	transaction, err := s.transactions.GetTransactionByID(userID, transactionID)
	if err != nil {
		return &CategorizationResult{
			Success: false,
			Error:   "Transação não encontrada",
		}
	}
	return s.classifyAndComplete(ctx, userID, transaction)
}

func (s *categorizationService) classifyAndComplete(ctx context.Context, userID string, transaction *models.Transaction) *CategorizationResult {
	log := logger.Get()

	categories, err := s.categories.GetUserCategories(userID)
	if err != nil {
		log.Errorw("failed to load categories for classification", "user_id", userID, "error", err)
		return &CategorizationResult{
			Success:     false,
			Error:       "Não foi possível carregar as categorias",
			Transaction: transaction,
		}
	}
	if len(categories) == 0 {
		return &CategorizationResult{
			Success:     false,
			Error:       "Nenhuma categoria encontrada para o usuário",
			Transaction: transaction,
		}
	}

	suggestion, err := s.classifier.Classify(ctx, ai.ClassifyInput{
		Description: transaction.Description,
		Amount:      transaction.Amount,
		Categories:  categories,
	})
	if err != nil {
		log.Warnw("classification failed", "user_id", userID, "transaction_id", transaction.ID, "error", err)
		return &CategorizationResult{
			Success:     false,
			Error:       "Não foi possível classificar a transação",
			Transaction: transaction,
		}
	}

	updated, err := s.transactions.UpdateTransaction(userID, transaction.ID, map[string]interface{}{
		"category_id": suggestion.CategoryID,
		"status":      models.TransactionStatusCompleted,
	})
	if err != nil {
		log.Errorw("failed to apply category", "user_id", userID, "transaction_id", transaction.ID, "error", err)
		return &CategorizationResult{
			Success:     false,
			Error:       "Não foi possível salvar a categoria sugerida",
			Transaction: transaction,
		}
	}

	return &CategorizationResult{
		Success:      true,
		Transaction:  updated,
		CategoryName: suggestion.CategoryName,
		Confidence:   suggestion.Confidence,
		Reasoning:    suggestion.Reasoning,
	}
}

// audit logs the inbound message, best effort.
func (s *categorizationService) audit(userID, text, sender string, processed bool, transactionID *string) {
	if s.whatsapp == nil {
		return
	}
	if _, err := s.whatsapp.LogMessage(userID, text, sender, "text", processed, transactionID); err != nil {
		logger.Get().Warnw("failed to log whatsapp message", "user_id", userID, "error", err)
	}
}
