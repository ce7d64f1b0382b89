// Package analysis provides functionalities for analyzing user behavior and complaints.
// It includes logic for determining the severity of complaints and calculating their impact on user reputation.
package analysis

import "pairgo/backend/internal/config"

// GetWeight returns the weight (penalty) for a given complaint type.
// Unrecognized types fall back to the "Low" weight so a malformed report
// still costs something instead of being silently free.
func GetWeight(complaintType string) int {
	if w, ok := config.ComplaintWeights[complaintType]; ok {
		return w
	}
	return config.ComplaintWeights["Low"]
}
