// Package complaint provides the core logic for handling user complaints,
// including reputation management and applying restrictions.
package complaint

import (
	"time"

	"pairgo/backend/internal/analysis"
	"pairgo/backend/internal/config"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"
)

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
}

// NewService creates a new complaint service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// HandleComplaint persists a new complaint, applies its reputation penalty
// and re-evaluates the reported user's ban status.
func (s *Service) HandleComplaint(complaint *models.Complaint) error {
	if err := s.Storage.SaveComplaint(complaint); err != nil {
		return err
	}

	weight := analysis.GetWeight(complaint.ComplaintType)
	if err := s.Storage.UpdateUserReputation(complaint.ReportedUserID, -weight); err != nil {
		return err
	}

	return s.CheckForBan(complaint.ReportedUserID)
}

// ConfirmComplaint marks a complaint as confirmed by a moderator and rewards
// the reporter's reputation. Both changes are persisted: a complaint that paid
// a bonus must never stay in the "new" state.
func (s *Service) ConfirmComplaint(id uint) error {
	c, err := s.Storage.GetComplaintByID(id)
	if err != nil {
		return err
	}

	c.Status = models.ComplaintStatusConfirmed
	if err := s.Storage.UpdateComplaint(c); err != nil {
		return err
	}

	return s.Storage.UpdateUserReputation(c.ReporterID, config.ConfirmedComplaintBonus)
}

// CheckForBan checks if a user should be banned based on their reputation
// and recent complaint history.
func (s *Service) CheckForBan(userID string) error {
	user, err := s.Storage.GetUserByID(userID)
	if err != nil {
		return err
	}

	// Threshold Ban
	if user.RatingScore < config.BanThresholdReputation {
		return s.applyBan(user)
	}

	// Frequency Ban
	complaints, err := s.Storage.GetComplaintsForUser(userID, time.Now().Add(-config.BanFrequencyWindow))
	if err != nil {
		return err
	}
	if len(complaints) > config.BanThresholdFrequency {
		return s.applyBan(user)
	}

	return nil
}

// applyBan escalates the ban level for repeat offenders: a second ban within
// a week jumps to level 2, within a month to level 3.
func (s *Service) applyBan(user *models.User) error {
	level := 1
	if user.LastBanDate > 0 {
		since := time.Since(time.Unix(user.LastBanDate, 0))
		if since < 7*24*time.Hour {
			level = 2
		} else if since < 30*24*time.Hour {
			level = 3
		}
	}

	user.BlockLevel = level
	user.LastBanDate = time.Now().Unix()
	if err := s.Storage.UpdateUser(user); err != nil {
		return err
	}

	return s.Storage.BanUser(user.ID, getBanDuration(level))
}

func getBanDuration(level int) time.Duration {
	switch level {
	case 1:
		return config.BanLevel1Duration
	case 2:
		return config.BanLevel2Duration
	default:
		return config.BanLevel3Duration
	}
}
