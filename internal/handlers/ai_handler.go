package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"granafacil/internal/ai"
	"granafacil/internal/cache"
	apperrors "granafacil/internal/errors"
	"granafacil/internal/services"
)

// AIHandler exposes the transaction-categorization pipeline over HTTP.
type AIHandler struct {
	categorizationService services.CategorizationServicer
	orchestrator          *cache.Orchestrator
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(categorizationService services.CategorizationServicer, orchestrator *cache.Orchestrator) *AIHandler {
	return &AIHandler{categorizationService: categorizationService, orchestrator: orchestrator}
}

// CategorizeRequest represents a free-form message to run through the pipeline
type CategorizeRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
}

// CategorizeResponse represents the outcome of the categorization pipeline
type CategorizeResponse struct {
	Success         bool    `json:"success"`
	Error           string  `json:"error,omitempty"`
	CategoryName    string  `json:"category_name,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	ConfidenceLevel string  `json:"confidence_level,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// Categorize handles running a free-form message through the pipeline
// @Summary     Categorize a message
// @Description Extract a transaction from a natural-language message, persist it, and categorize it
// @Tags        ai
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CategorizeRequest true "Message to process"
// @Success     200 {object} CategorizeResponse "Pipeline result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     422 {object} CategorizeResponse "No transaction found or no categories configured"
// @Router      /ai/categorize [post]
func (h *AIHandler) Categorize(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result := h.categorizationService.ProcessMessage(c.Request.Context(), userID, req.Message, "api")
	h.respondWithResult(c, userID, result)
}

// Recategorize handles re-running classification for an existing transaction
// @Summary     Recategorize a transaction
// @Description Re-run AI classification for an existing transaction
// @Tags        ai
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} CategorizeResponse "Pipeline result"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     422 {object} CategorizeResponse "Classification failed"
// @Router      /transactions/{id}/categorize [post]
func (h *AIHandler) Recategorize(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result := h.categorizationService.Recategorize(c.Request.Context(), userID, transactionID)
	h.respondWithResult(c, userID, result)
}

func (h *AIHandler) respondWithResult(c *gin.Context, userID string, result *services.CategorizationResult) {
	if !result.Success {
		// A transaction may still have been persisted before the failure.
		if result.Transaction != nil {
			h.orchestrator.Invalidate(userID, cache.BucketTransactions, cache.BucketBalance)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success":     false,
			"error":       result.Error,
			"transaction": result.Transaction,
		})
		return
	}

	h.orchestrator.Invalidate(userID,
		cache.BucketTransactions,
		cache.BucketBalance,
		cache.BucketMonthlyReport,
		cache.BucketActivityLog,
	)

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"transaction":      result.Transaction,
		"category_name":    result.CategoryName,
		"confidence":       result.Confidence,
		"confidence_level": ai.ConfidenceLevel(result.Confidence),
		"reasoning":        result.Reasoning,
	})
}
