package chathub_test

import (
	"testing"

	"pairgo/backend/internal/chathub"

	"github.com/stretchr/testify/assert"
)

func TestPresence_MarkOnlineReplacesOnReconnect(t *testing.T) {
	// Arrange
	registry := chathub.NewPresenceRegistry()
	first := newMockClient("conn_1", profile("user_A", 25, "male"))
	second := newMockClient("conn_2", profile("user_A", 25, "male"))

	// Act
	replaced := registry.MarkOnline(chathub.OnlineEntry{
		UserID: "user_A", ConnID: "conn_1", Profile: first.GetProfile(), Client: first,
	})
	assert.Nil(t, replaced, "first connection should not replace anything")

	replaced = registry.MarkOnline(chathub.OnlineEntry{
		UserID: "user_A", ConnID: "conn_2", Profile: second.GetProfile(), Client: second,
	})

	// Assert - exactly one entry, the old client handed back for teardown
	assert.Same(t, first, replaced, "reconnect must hand back the prior client")
	assert.Equal(t, 1, registry.Count(), "no duplicate entries per userID")
	entry, ok := registry.Get("user_A")
	assert.True(t, ok)
	assert.Equal(t, "conn_2", entry.ConnID)
}

func TestPresence_MarkOfflineIsIdempotent(t *testing.T) {
	registry := chathub.NewPresenceRegistry()
	c := newMockClient("conn_1", profile("user_A", 25, "male"))
	registry.MarkOnline(chathub.OnlineEntry{
		UserID: "user_A", ConnID: "conn_1", Profile: c.GetProfile(), Client: c,
	})

	assert.True(t, registry.MarkOffline("user_A", "conn_1"))
	assert.False(t, registry.MarkOffline("user_A", "conn_1"), "second removal is a no-op")
	assert.False(t, registry.IsOnline("user_A"))
}

// A stale unregister from a replaced connection must not knock out the entry
// created by the reconnect.
func TestPresence_StaleOfflineDoesNotRemoveReconnect(t *testing.T) {
	registry := chathub.NewPresenceRegistry()
	c := newMockClient("conn_2", profile("user_A", 25, "male"))
	registry.MarkOnline(chathub.OnlineEntry{
		UserID: "user_A", ConnID: "conn_2", Profile: c.GetProfile(), Client: c,
	})

	assert.False(t, registry.MarkOffline("user_A", "conn_1"), "old connID must not match")
	assert.True(t, registry.IsOnline("user_A"))
}

func TestPresence_BatchStatus(t *testing.T) {
	registry := chathub.NewPresenceRegistry()
	a := newMockClient("conn_a", profile("user_A", 25, "male"))
	registry.MarkOnline(chathub.OnlineEntry{
		UserID: "user_A", ConnID: "conn_a", Profile: a.GetProfile(), Client: a,
	})

	statuses := registry.BatchStatus([]string{"user_A", "user_B"})

	assert.Equal(t, map[string]bool{"user_A": true, "user_B": false}, statuses)
}

func TestPresence_SnapshotPreservesInsertionOrder(t *testing.T) {
	registry := chathub.NewPresenceRegistry()
	ids := []string{"user_C", "user_A", "user_B"}
	for i, id := range ids {
		c := newMockClient("conn_"+id, profile(id, 20+i, "any"))
		registry.MarkOnline(chathub.OnlineEntry{
			UserID: id, ConnID: c.GetConnID(), Profile: c.GetProfile(), Client: c,
		})
	}

	snapshot := registry.SnapshotOnline()

	assert.Len(t, snapshot, 3)
	for i, id := range ids {
		assert.Equal(t, id, snapshot[i].UserID)
	}
}
