package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"granafacil/internal/services"
)

// WhatsAppHandler handles WhatsApp account-linking requests.
type WhatsAppHandler struct {
	whatsappService services.WhatsAppServicer
}

// NewWhatsAppHandler creates a new WhatsAppHandler.
func NewWhatsAppHandler(whatsappService services.WhatsAppServicer) *WhatsAppHandler {
	return &WhatsAppHandler{whatsappService: whatsappService}
}

// LinkResponse represents the user's WhatsApp link state
type LinkResponse struct {
	Linked       bool   `json:"linked"`
	PushName     string `json:"push_name,omitempty"`
	MessageCount int64  `json:"message_count,omitempty"`
}

// LinkCodeResponse represents a freshly generated link code
type LinkCodeResponse struct {
	LinkCode  string `json:"link_code"`
	ExpiresAt string `json:"expires_at"`
}

// GetLink returns the user's WhatsApp link state
// @Summary     Get WhatsApp link
// @Description Get the authenticated user's WhatsApp link state
// @Tags        whatsapp
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} LinkResponse "Link state"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /whatsapp/link [get]
func (h *WhatsAppHandler) GetLink(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	link, err := h.whatsappService.GetLinkByUserID(userID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"linked": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"linked":        link.IsActive,
		"push_name":     link.PushName,
		"message_count": link.MessageCount,
	})
}

// GenerateLinkCode generates a link code for the user
// @Summary     Generate WhatsApp link code
// @Description Generate a short-lived code the user sends over WhatsApp to link the number
// @Tags        whatsapp
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     201 {object} LinkCodeResponse "Link code generated"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /whatsapp/link-code [post]
func (h *WhatsAppHandler) GenerateLinkCode(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	link, err := h.whatsappService.GenerateLinkCode(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"link_code":  link.LinkCode,
		"expires_at": link.LinkCodeExpiresAt,
	})
}

// Unlink removes the user's WhatsApp link
// @Summary     Unlink WhatsApp
// @Description Remove the authenticated user's WhatsApp link
// @Tags        whatsapp
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} MessageResponse "Unlinked"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No link found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /whatsapp/link [delete]
func (h *WhatsAppHandler) Unlink(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.whatsappService.Unlink(userID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "WhatsApp unlinked successfully"})
}
