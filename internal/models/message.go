package models

import "gorm.io/gorm"

// Типи повідомлень, які приймає relay від клієнтів.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message represents a saved chat message in the PostgreSQL database.
// The embedded gorm.Model provides ID, CreatedAt, UpdatedAt, and DeletedAt
// fields, which serve as the message ID and server-assigned timestamps.
type Message struct {
	gorm.Model

	// ConversationID is the identifier of the conversation (= room) the
	// message belongs to.
	ConversationID string `gorm:"type:uuid;not null;index:idx_conv_msg" json:"room_id"`
	// SenderID is the anonymous ID of the user who sent the message.
	SenderID string `gorm:"type:text;not null;index:idx_conv_msg" json:"sender_id"`
	// Content is the main content of the message.
	Content string `gorm:"type:text;not null" json:"content"`
	// Type indicates the kind of message ("text" or "image").
	Type string `gorm:"type:text;not null" json:"type"`
	// ImageRef is an opaque reference to an uploaded image, set for
	// image messages. The media service owns the actual bytes.
	ImageRef string `gorm:"type:text" json:"image_id,omitempty"`
	// Seen marks the message as read by the recipient.
	Seen bool `gorm:"default:false" json:"seen"`
}
