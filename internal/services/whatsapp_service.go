package services

import (
	"crypto/rand"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "granafacil/internal/errors"
	"granafacil/internal/models"
)

const (
	linkCodeLength = 6
	linkCodeExpiry = 15 * time.Minute
)

// whatsappService handles WhatsApp account linking and the inbound
// message audit trail.
type whatsappService struct {
	db *gorm.DB
}

// NewWhatsAppService creates a new WhatsAppServicer.
func NewWhatsAppService(db *gorm.DB) WhatsAppServicer {
	return &whatsappService{db: db}
}

// GetLinkByUserID retrieves a WhatsApp link by user ID
func (s *whatsappService) GetLinkByUserID(userID string) (*models.WhatsAppLink, error) {
	var link models.WhatsAppLink
	if err := s.db.Where("user_id = ?", userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &link, nil
}

// GetLinkByJID retrieves an active link by WhatsApp JID
func (s *whatsappService) GetLinkByJID(jid string) (*models.WhatsAppLink, error) {
	var link models.WhatsAppLink
	if err := s.db.Where("whatsapp_jid = ? AND is_active = ?", jid, true).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &link, nil
}

// GenerateLinkCode generates a new short-lived link code for a user.
// The code is sent by the user as a WhatsApp message to complete the link.
func (s *whatsappService) GenerateLinkCode(userID string) (*models.WhatsAppLink, error) {
	var existing models.WhatsAppLink
	dbErr := s.db.Where("user_id = ?", userID).First(&existing).Error

	code, err := generateRandomCode(linkCodeLength)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expiresAt := time.Now().Add(linkCodeExpiry)

	if dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			link := &models.WhatsAppLink{
				UserID:            userID,
				LinkCode:          code,
				LinkCodeExpiresAt: &expiresAt,
				IsActive:          false,
			}
			if err := s.db.Create(link).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return link, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
	}

	existing.LinkCode = code
	existing.LinkCodeExpiresAt = &expiresAt
	if err := s.db.Save(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &existing, nil
}

// CompleteLink activates a link by verifying the code sent over WhatsApp.
func (s *whatsappService) CompleteLink(linkCode, jid, pushName string) (*models.WhatsAppLink, error) {
	var link models.WhatsAppLink
	if err := s.db.Where("link_code = ?", linkCode).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidLinkCode
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if link.LinkCodeExpiresAt == nil || time.Now().After(*link.LinkCodeExpiresAt) {
		return nil, apperrors.ErrLinkCodeExpired
	}

	// A number can belong to at most one account.
	var other models.WhatsAppLink
	err := s.db.Where("whatsapp_jid = ? AND user_id != ?", jid, link.UserID).First(&other).Error
	if err == nil {
		return nil, apperrors.ErrWhatsAppAlreadyLinked
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	link.WhatsAppJID = jid
	link.PushName = pushName
	link.IsActive = true
	link.LinkCode = ""
	link.LinkCodeExpiresAt = nil

	if err := s.db.Save(&link).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &link, nil
}

// Unlink deactivates the user's WhatsApp link.
func (s *whatsappService) Unlink(userID string) error {
	link, err := s.GetLinkByUserID(userID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(link).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecordInbound bumps the message counters for an active link.
func (s *whatsappService) RecordInbound(jid string) error {
	now := time.Now()
	result := s.db.Model(&models.WhatsAppLink{}).
		Where("whatsapp_jid = ? AND is_active = ?", jid, true).
		Updates(map[string]interface{}{
			"last_message_at": now,
			"message_count":   gorm.Expr("message_count + 1"),
		})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return nil
}

// LogMessage appends an inbound message to the audit trail.
func (s *whatsappService) LogMessage(userID, text, sender, messageType string, processed bool, transactionID *string) (*models.WhatsAppMessage, error) {
	if messageType == "" {
		messageType = "text"
	}
	message := &models.WhatsAppMessage{
		UserID:        userID,
		MessageText:   text,
		Sender:        sender,
		MessageType:   messageType,
		Processed:     processed,
		TransactionID: transactionID,
	}
	if err := s.db.Create(message).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return message, nil
}

// generateRandomCode produces an uppercase alphanumeric code without
// easily confused characters.
func generateRandomCode(length int) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf), nil
}
