package models

import "gorm.io/gorm"

// Стани життєвого циклу скарги.
const (
	ComplaintStatusNew       = "new"
	ComplaintStatusConfirmed = "confirmed"
	ComplaintStatusDismissed = "dismissed"
)

type Complaint struct {
	gorm.Model

	ReporterID     string
	ReportedUserID string `gorm:"index"`
	ConversationID string
	ComplaintType  string // "Low", "Medium", "Critical"
	Reason         string
	Status         string // "new", "confirmed", "dismissed"
}
