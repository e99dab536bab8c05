package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"granafacil/internal/cache"
)

// ActivityHandler serves the unified activity feed.
type ActivityHandler struct {
	orchestrator *cache.Orchestrator
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(orchestrator *cache.Orchestrator) *ActivityHandler {
	return &ActivityHandler{orchestrator: orchestrator}
}

// GetRecentActivity handles the retrieval of the activity feed
// @Summary     Get recent activity
// @Description Get the most recent transactions, paid bills, and goals merged into one feed
// @Tags        activity
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} services.ActivityItem "Activity feed"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /activity [get]
func (h *ActivityHandler) GetRecentActivity(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	activity, err := h.orchestrator.GetCached(c.Request.Context(), userID, cache.BucketActivityLog)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": activity})
}
