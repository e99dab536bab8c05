package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"granafacil/internal/cache"
	apperrors "granafacil/internal/errors"
	"granafacil/internal/models"
	"granafacil/internal/services"
)

// GoalHandler handles savings-goal requests.
type GoalHandler struct {
	goalService  services.GoalServicer
	orchestrator *cache.Orchestrator
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, orchestrator *cache.Orchestrator) *GoalHandler {
	return &GoalHandler{goalService: goalService, orchestrator: orchestrator}
}

// CreateGoalRequest represents the request payload for creating a goal
type CreateGoalRequest struct {
	Title        string          `json:"title" binding:"required,max=200"`
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required"`
}

// UpdateGoalRequest represents the request payload for updating a goal
type UpdateGoalRequest struct {
	Title        *string          `json:"title" binding:"omitempty,max=200"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
}

// AddContributionRequest represents the request payload for adding a contribution
type AddContributionRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Notes  string          `json:"notes" binding:"max=500"`
}

// GoalResponse represents a goal in the response
type GoalResponse struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	Title         string                `json:"title"`
	TargetAmount  decimal.Decimal       `json:"target_amount"`
	CurrentAmount decimal.Decimal       `json:"current_amount"`
	Status        models.GoalStatus     `json:"status"`
	Contributions models.Contributions  `json:"contributions"`
}

func (h *GoalHandler) invalidateGoals(userID string) {
	h.orchestrator.Invalidate(userID, cache.BucketGoals, cache.BucketActivityLog)
}

// CreateGoal handles the creation of a new goal
// @Summary     Create a goal
// @Description Create a new savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} GoalResponse "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.CreateGoal(userID, req.Title, req.TargetAmount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateGoals(userID)

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetUserGoals handles the retrieval of all goals for a user
// @Summary     Get all goals
// @Description Get all savings goals for the authenticated user, newest first
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} GoalResponse "List of goals"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [get]
func (h *GoalHandler) GetUserGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goals, err := h.orchestrator.GetCached(c.Request.Context(), userID, cache.BucketGoals)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// GetGoalByID handles the retrieval of a specific goal
// @Summary     Get goal by ID
// @Description Get a specific savings goal with its contributions, newest first
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} GoalResponse "Goal details"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoalByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetGoalByID(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// UpdateGoal handles updating a goal
// @Summary     Update goal
// @Description Partially update an existing goal; omitted fields are left unchanged
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Param       request body UpdateGoalRequest true "Fields to update"
// @Success     200 {object} GoalResponse "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input or goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [patch]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.TargetAmount != nil {
		if req.TargetAmount.LessThanOrEqual(decimal.Zero) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero"))
			return
		}
		updates["target_amount"] = *req.TargetAmount
	}

	goal, err := h.goalService.UpdateGoal(userID, goalID, updates)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateGoals(userID)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal handles deleting a goal
// @Summary     Delete goal
// @Description Delete a goal and its contributions by ID
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateGoals(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// AddContribution handles adding a contribution to a goal
// @Summary     Add contribution
// @Description Add a contribution to a goal; the goal total and status are recomputed
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Param       request body AddContributionRequest true "Contribution details"
// @Success     201 {object} GoalResponse "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input or goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification, retry"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contributions [post]
func (h *GoalHandler) AddContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.AddContribution(userID, goalID, req.Amount, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateGoals(userID)

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// DeleteContribution handles removing a contribution from a goal
// @Summary     Delete contribution
// @Description Remove a contribution from a goal; the goal total and status are recomputed
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id              path string true "Goal ID"
// @Param       contribution_id path string true "Contribution ID"
// @Success     200 {object} GoalResponse "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid goal or contribution ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal or contribution not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification, retry"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contributions/{contribution_id} [delete]
func (h *GoalHandler) DeleteContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	contributionID, err := parsePathID(c, "contribution_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.DeleteContribution(userID, goalID, contributionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.invalidateGoals(userID)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}
