package models

import "time"

// WhatsAppLink represents a link between a WhatsApp number and a
// GranaFácil user. The link is established by sending a short-lived
// code, generated in the app, as a WhatsApp message. JID uniqueness
// across active links is enforced by a partial index in the migration
// and re-checked in CompleteLink.
type WhatsAppLink struct {
	Base
	UserID            string     `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	WhatsAppJID       string     `gorm:"index" json:"whatsapp_jid,omitempty"`
	PushName          string     `json:"push_name,omitempty"`
	LinkCode          string     `gorm:"size:6" json:"-"`
	LinkCodeExpiresAt *time.Time `json:"-"`
	IsActive          bool       `gorm:"default:false" json:"is_active"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
	MessageCount      int64      `gorm:"default:0" json:"message_count"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
