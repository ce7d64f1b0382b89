package models

import "time"

// Conversation represents a persisted 1-on-1 chat between two users.
// Its ID doubles as the realtime room identifier: the relay never invents
// a room that has no backing conversation row.
type Conversation struct {
	// ID is the unique identifier of the conversation (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// User1ID is the anonymous ID of the first participant.
	User1ID string `gorm:"index:idx_conv_pair" json:"user1_id"`
	// User2ID is the anonymous ID of the second participant.
	User2ID string `gorm:"index:idx_conv_pair" json:"user2_id"`
	// IsActive indicates whether the conversation is currently open.
	IsActive bool `json:"is_active"`
	// StartedAt is the timestamp when the conversation was created.
	StartedAt time.Time `json:"started_at"`
	// EndedAt is the timestamp when the conversation was closed.
	EndedAt time.Time `json:"ended_at"`
}

// HasParticipant reports whether the given user is one of the two
// participants recorded for this conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// PartnerOf returns the other participant's ID, or "" if userID is not
// a participant at all.
func (c *Conversation) PartnerOf(userID string) string {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return ""
}
