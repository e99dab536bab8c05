package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"granafacil/internal/cache"
	"granafacil/internal/evolution"
	"granafacil/internal/logger"
	"granafacil/internal/services"
)

// linkCodePattern matches a bare 6-character link code message.
var linkCodePattern = regexp.MustCompile(`^[A-Z2-9]{6}$`)

// WebhookHandler receives Evolution API events and drives the WhatsApp
// message pipeline.
type WebhookHandler struct {
	whatsappService       services.WhatsAppServicer
	categorizationService services.CategorizationServicer
	orchestrator          *cache.Orchestrator
	sender                evolution.Sender
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(
	whatsappService services.WhatsAppServicer,
	categorizationService services.CategorizationServicer,
	orchestrator *cache.Orchestrator,
	sender evolution.Sender,
) *WebhookHandler {
	return &WebhookHandler{
		whatsappService:       whatsappService,
		categorizationService: categorizationService,
		orchestrator:          orchestrator,
		sender:                sender,
	}
}

// EvolutionWebhookPayload mirrors the Evolution API event envelope.
type EvolutionWebhookPayload struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			FromMe    bool   `json:"fromMe"`
			RemoteJid string `json:"remoteJid"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

// messageText returns the text content regardless of which Evolution
// message shape carried it.
func (p *EvolutionWebhookPayload) messageText() string {
	if p.Data.Message.Conversation != "" {
		return p.Data.Message.Conversation
	}
	return p.Data.Message.ExtendedTextMessage.Text
}

// HandleEvolution processes an inbound Evolution API webhook event.
// Events other than incoming user messages are acknowledged and ignored;
// a processing failure returns 500 so Evolution retries the delivery.
// @Summary     Evolution API webhook
// @Description Receive WhatsApp events from the Evolution API
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       payload body EvolutionWebhookPayload true "Evolution event"
// @Success     200 {object} map[string]interface{} "Processed or ignored"
// @Failure     500 {object} map[string]interface{} "Processing failed"
// @Router      /webhook [post]
func (h *WebhookHandler) HandleEvolution(c *gin.Context) {
	var payload EvolutionWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "ignored": "unparseable payload"})
		return
	}

	if payload.Event != "messages.upsert" || payload.Data.Key.FromMe {
		c.JSON(http.StatusOK, gin.H{"success": true, "ignored": "not an inbound message"})
		return
	}

	jid := payload.Data.Key.RemoteJid
	text := strings.TrimSpace(payload.messageText())
	if jid == "" || text == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "ignored": "empty message"})
		return
	}

	log := logger.Get()
	number := evolution.JIDToNumber(jid)

	// A bare link code activates the account link for this number.
	if code := strings.ToUpper(text); linkCodePattern.MatchString(code) {
		link, err := h.whatsappService.CompleteLink(code, jid, payload.Data.PushName)
		if err != nil {
			log.Warnw("link code rejected", "jid", jid, "error", err)
			h.reply(c, number, "Código inválido ou expirado. Gere um novo código no aplicativo.")
			c.JSON(http.StatusOK, gin.H{"success": true, "ignored": "invalid link code"})
			return
		}
		h.reply(c, number, "WhatsApp vinculado com sucesso! Agora é só me mandar seus gastos e receitas.")
		c.JSON(http.StatusOK, gin.H{"success": true, "linked": link.UserID})
		return
	}

	link, err := h.whatsappService.GetLinkByJID(jid)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "ignored": "unlinked number"})
		return
	}

	if err := h.whatsappService.RecordInbound(jid); err != nil {
		log.Warnw("failed to record inbound message", "jid", jid, "error", err)
	}

	result := h.categorizationService.ProcessMessage(c.Request.Context(), link.UserID, text, number)
	if !result.Success {
		h.reply(c, number, result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to process message",
			"details": result.Error,
		})
		return
	}

	if err := h.orchestrator.SyncAll(c.Request.Context(), link.UserID); err != nil {
		log.Warnw("cache sync after webhook failed", "user_id", link.UserID, "error", err)
	}

	h.reply(c, number, fmt.Sprintf(
		"Transação registrada: %s (R$ %s)\nCategoria: %s (%.0f%% de confiança)",
		result.Transaction.Description,
		result.Transaction.Amount.StringFixed(2),
		result.CategoryName,
		result.Confidence*100,
	))

	c.JSON(http.StatusOK, gin.H{"success": true, "transaction_id": result.Transaction.ID})
}

// reply sends a WhatsApp message back to the user, best effort.
func (h *WebhookHandler) reply(c *gin.Context, number, text string) {
	if h.sender == nil {
		return
	}
	if err := h.sender.SendText(c.Request.Context(), number, text); err != nil {
		logger.Get().Warnw("failed to send whatsapp reply", "number", number, "error", err)
	}
}
