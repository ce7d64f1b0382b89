package config

import "time"

const (
	// Profile
	MinAge = 18
	MaxAge = 99

	// Reputation
	InitialReputation        = 1000
	MaxReputation            = 1000
	MinReputation            = 0
	ConfirmedComplaintBonus  = 50
	ReputationRecoveryAmount = 100

	// Ban
	BanThresholdReputation = 500
	BanThresholdFrequency  = 5
	BanFrequencyWindow     = 24 * time.Hour
	BanLevel1Duration      = 30 * time.Minute
	BanLevel2Duration      = 6 * time.Hour
	BanLevel3Duration      = 24 * time.Hour
)

var ComplaintWeights = map[string]int{
	"Low":      5,
	"Medium":   50,
	"Critical": 250,
}
