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

// BillHandler handles bill-related requests.
type BillHandler struct {
	billService  services.BillServicer
	orchestrator *cache.Orchestrator
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(billService services.BillServicer, orchestrator *cache.Orchestrator) *BillHandler {
	return &BillHandler{billService: billService, orchestrator: orchestrator}
}

// CreateBillRequest represents the request payload for creating a bill
type CreateBillRequest struct {
	Title   string          `json:"title" binding:"required,max=200"`
	Type    models.BillType `json:"type" binding:"required,bill_type"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	DueDate string          `json:"due_date" binding:"required"`
}

// UpdateBillRequest represents the request payload for updating a bill
type UpdateBillRequest struct {
	Title   *string          `json:"title" binding:"omitempty,max=200"`
	Type    *models.BillType `json:"type" binding:"omitempty,bill_type"`
	Amount  *decimal.Decimal `json:"amount"`
	DueDate *string          `json:"due_date"`
}

// BillResponse represents a bill in the response
type BillResponse struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id"`
	Title    string            `json:"title"`
	Type     models.BillType   `json:"type"`
	Amount   decimal.Decimal   `json:"amount"`
	DueDate  time.Time         `json:"due_date"`
	Status   models.BillStatus `json:"status"`
	PaidAt   *time.Time        `json:"paid_at,omitempty"`
	DueState models.DueState   `json:"due_state"`
}

func (h *BillHandler) invalidateBills(userID string) {
	h.orchestrator.Invalidate(userID, cache.BucketBills, cache.BucketActivityLog)
}

// CreateBill handles the creation of a new bill
// @Summary     Create a bill
// @Description Create a new bill payable or receivable
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBillRequest true "Bill details"
// @Success     201 {object} BillResponse "Bill created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	dueDate, err := parseFlexibleTime(req.DueDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	bill, err := h.billService.CreateBill(userID, req.Title, req.Type, req.Amount, dueDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateBills(userID)

	c.JSON(http.StatusCreated, gin.H{"bill": bill})
}

// GetUserBills handles the retrieval of bills for the authenticated user
// @Summary     Get user bills
// @Description Get a paginated list of bills ordered by due date, each annotated with its due state
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       type      query string false "Filter by bill type (payable, receivable)"
// @Param       status    query string false "Filter by status (pending, paid)"
// @Success     200 {object} pagination.PageResponse[services.BillWithState] "Paginated bills"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bills [get]
func (h *BillHandler) GetUserBills(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if len(c.Request.URL.Query()) == 0 {
		result, err := h.orchestrator.GetCached(c.Request.Context(), userID, cache.BucketBills)
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

	filter := services.BillFilter{
		Type:   models.BillType(c.Query("type")),
		Status: models.BillStatus(c.Query("status")),
	}

	result, err := h.billService.GetUserBills(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBillByID handles the retrieval of a specific bill
// @Summary     Get bill by ID
// @Description Get a specific bill by ID
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} BillResponse "Bill details"
// @Failure     400 {object} ErrorResponse "Invalid bill ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bills/{id} [get]
func (h *BillHandler) GetBillByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.GetBillByID(userID, billID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// UpdateBill handles updating a bill
// @Summary     Update bill
// @Description Partially update an existing bill; omitted fields are left unchanged
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Param       request body UpdateBillRequest true "Fields to update"
// @Success     200 {object} BillResponse "Updated bill"
// @Failure     400 {object} ErrorResponse "Invalid input or bill ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bills/{id} [patch]
func (h *BillHandler) UpdateBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Amount != nil {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero"))
			return
		}
		updates["amount"] = *req.Amount
	}
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, parseErr := parseFlexibleTime(*req.DueDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		updates["due_date"] = parsed
	}

	bill, err := h.billService.UpdateBill(userID, billID, updates)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateBills(userID)

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// DeleteBill handles deleting a bill
// @Summary     Delete bill
// @Description Delete a bill by ID
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} MessageResponse "Bill deleted"
// @Failure     400 {object} ErrorResponse "Invalid bill ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bills/{id} [delete]
func (h *BillHandler) DeleteBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.billService.DeleteBill(userID, billID); err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateBills(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}

// PayBill handles marking a bill as paid
// @Summary     Mark bill as paid
// @Description Mark a bill as paid and stamp the payment time. Paying an already-paid bill is a no-op.
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} BillResponse "Updated bill"
// @Failure     400 {object} ErrorResponse "Invalid bill ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bills/{id}/pay [patch]
func (h *BillHandler) PayBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.MarkPaid(userID, billID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateBills(userID)

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}
