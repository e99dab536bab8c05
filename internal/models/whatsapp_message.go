package models

// WhatsAppMessage is the append-only audit trail of inbound messages
// handled by the AI categorization pipeline.
type WhatsAppMessage struct {
	Base
	UserID        string  `gorm:"type:uuid;not null;index" json:"user_id"`
	MessageText   string  `gorm:"not null" json:"message_text"`
	Sender        string  `gorm:"not null" json:"sender"`
	MessageType   string  `gorm:"not null;default:'text'" json:"message_type"`
	Processed     bool    `gorm:"default:false" json:"processed"`
	TransactionID *string `gorm:"type:uuid" json:"transaction_id,omitempty"`

	Transaction *Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
}
