package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"granafacil/internal/cache"
	apperrors "granafacil/internal/errors"
	"granafacil/internal/models"
	"granafacil/internal/pagination"
	"granafacil/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	orchestrator       *cache.Orchestrator
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, orchestrator *cache.Orchestrator) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, orchestrator: orchestrator}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Description string                   `json:"description" binding:"required,max=500"`
	Amount      decimal.Decimal          `json:"amount" binding:"required"`
	Type        models.TransactionType   `json:"type" binding:"required,transaction_type"`
	CategoryID  *string                  `json:"category_id"`
	Status      models.TransactionStatus `json:"status" binding:"omitempty,transaction_status"`
	Date        *string                  `json:"date"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction
type UpdateTransactionRequest struct {
	Description *string                   `json:"description" binding:"omitempty,max=500"`
	Amount      *decimal.Decimal          `json:"amount"`
	Type        *models.TransactionType   `json:"type" binding:"omitempty,transaction_type"`
	CategoryID  *string                   `json:"category_id"`
	Status      *models.TransactionStatus `json:"status" binding:"omitempty,transaction_status"`
	Date        *string                   `json:"date"`
}

// TransactionResponse represents a transaction in the response
type TransactionResponse struct {
	ID              string                   `json:"id"`
	UserID          string                   `json:"user_id"`
	Description     string                   `json:"description"`
	Amount          decimal.Decimal          `json:"amount"`
	Type            models.TransactionType  `json:"type"`
	CategoryID      *string                  `json:"category_id,omitempty"`
	Status          models.TransactionStatus `json:"status"`
	TransactionDate time.Time                `json:"transaction_date"`
}

// invalidateFinancial drops every view a transaction write can affect.
func (h *TransactionHandler) invalidateFinancial(userID string) {
	h.orchestrator.Invalidate(userID,
		cache.BucketTransactions,
		cache.BucketBalance,
		cache.BucketMonthlyReport,
		cache.BucketActivityLog,
	)
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Create a new income or expense transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} TransactionResponse "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactionDate := time.Now()
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		transactionDate = parsed
	}

	transaction, err := h.transactionService.CreateTransaction(
		userID,
		req.Description,
		req.Amount,
		req.Type,
		req.CategoryID,
		req.Status,
		transactionDate,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateFinancial(userID)

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetUserTransactions handles the retrieval of transactions for the authenticated user
// @Summary     Get user transactions
// @Description Get a paginated list of transactions with optional filters, newest first
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Param       type        query string false "Filter by transaction type (income, expense)"
// @Param       status      query string false "Filter by status (pending, completed)"
// @Param       category_id query string false "Filter by category ID"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// The default first page is the hot path; serve it from cache.
	if len(c.Request.URL.Query()) == 0 {
		result, err := h.orchestrator.GetCached(c.Request.Context(), userID, cache.BucketTransactions)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		Type:       models.TransactionType(c.Query("type")),
		Status:     models.TransactionStatus(c.Query("status")),
		CategoryID: c.Query("category_id"),
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} TransactionResponse "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
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

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating a transaction
// @Summary     Update transaction
// @Description Partially update an existing transaction; omitted fields are left unchanged
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} TransactionResponse "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
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

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updates := make(map[string]interface{})
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Amount != nil {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero"))
			return
		}
		updates["amount"] = *req.Amount
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		updates["transaction_date"] = parsed
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, updates)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateFinancial(userID)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Delete a transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
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

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateFinancial(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// GetBalance handles the retrieval of the user's balance summary
// @Summary     Get balance summary
// @Description Get the lifetime balance and the current month's income/expense split
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.BalanceSummary "Balance summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /balance [get]
func (h *TransactionHandler) GetBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.orchestrator.GetCached(c.Request.Context(), userID, cache.BucketBalance)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetMonthlyReport handles the retrieval of the current month's category breakdown
// @Summary     Get monthly report
// @Description Get the current month's income/expense totals broken down by category
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.MonthlyReport "Monthly report"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/monthly [get]
func (h *TransactionHandler) GetMonthlyReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.orchestrator.GetCached(c.Request.Context(), userID, cache.BucketMonthlyReport)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
