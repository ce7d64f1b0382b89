package chathub_test

import (
	"testing"

	"pairgo/backend/internal/chathub"

	"github.com/stretchr/testify/assert"
)

func TestTypingTracker_StartStop(t *testing.T) {
	tracker := chathub.NewTypingTracker()

	assert.True(t, tracker.Start("room_1", "user_A"))
	assert.False(t, tracker.Start("room_1", "user_A"), "repeated start is not a new signal")
	assert.True(t, tracker.IsTyping("room_1", "user_A"))

	assert.True(t, tracker.Stop("room_1", "user_A"))
	assert.False(t, tracker.Stop("room_1", "user_A"), "stop without start is a no-op")
	assert.False(t, tracker.IsTyping("room_1", "user_A"))
}

func TestTypingTracker_RoomsAreIndependent(t *testing.T) {
	tracker := chathub.NewTypingTracker()

	tracker.Start("room_1", "user_A")
	tracker.Start("room_2", "user_B")

	assert.ElementsMatch(t, []string{"user_A"}, tracker.Typing("room_1"))
	assert.ElementsMatch(t, []string{"user_B"}, tracker.Typing("room_2"))
	assert.False(t, tracker.IsTyping("room_2", "user_A"))
}
