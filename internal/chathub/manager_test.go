package chathub_test

import (
	"encoding/json"
	"testing"
	"time"

	"pairgo/backend/internal/chathub"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestManager_RegisterBroadcastsPresence(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)
	go hub.Run()

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	b := newMockClient("conn_b", profile("user_B", 24, "any"))

	// Act
	hub.RegisterCh <- a
	hub.RegisterCh <- b

	// Assert: A hears about B coming online; B is not told about itself.
	ev := recvEvent(t, a)
	assert.Equal(t, models.EventUserOnline, ev.Event)
	var payload models.UserPayload
	assert.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "user_B", payload.UserID)
	noEvent(t, b)
	assert.Equal(t, chathub.StateIdle, b.State())
}

func TestManager_ReconnectReplacesOldConnection(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)
	go hub.Run()

	old := newMockClient("conn_1", profile("user_A", 22, "any"))
	hub.RegisterCh <- old

	// Act: the same user connects again with a fresh connection.
	fresh := newMockClient("conn_2", profile("user_A", 22, "any"))
	hub.RegisterCh <- fresh

	// Assert
	assert.Eventually(t, old.Closed, time.Second, 10*time.Millisecond,
		"replaced connection must be shut down")
	assert.Eventually(t, func() bool {
		entry, ok := hub.Presence.Get("user_A")
		return ok && entry.ConnID == "conn_2"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Presence.Count(), "one live entry per user")
}

// Disconnect removes the connection from every registry it may occupy,
// and running the cascade twice changes nothing.
func TestManager_DisconnectCascadeIsIdempotent(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	storageMock.On("IsUserBanned", "user_A").Return(false, nil)
	storageMock.On("FindConversation", mock.Anything, mock.Anything).Return(nil, nil)
	hub, matcher := newTestHub(storageMock)
	go hub.Run()
	go matcher.Run()

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	b := newMockClient("conn_b", profile("user_B", 24, "any"))
	hub.RegisterCh <- a
	hub.RegisterCh <- b
	recvEvent(t, a) // user:online for B

	// A is mid-search when the socket drops.
	matcher.RequestSearch(a, filter(30, 40, "female"))
	assert.Eventually(t, func() bool { return hub.Matcher.Pool.ContainsUser("user_A") },
		time.Second, 10*time.Millisecond)
	recvEvent(t, a) // waitingForPartner

	// Act
	hub.UnregisterCh <- a
	hub.UnregisterCh <- a

	// Assert: B is told exactly once, and no registry still knows conn_a.
	ev := recvEvent(t, b)
	assert.Equal(t, models.EventUserOffline, ev.Event)
	noEvent(t, b)
	assert.False(t, hub.Presence.IsOnline("user_A"))
	assert.Eventually(t, func() bool { return !hub.Matcher.Pool.ContainsUser("user_A") },
		time.Second, 10*time.Millisecond)
	assert.Empty(t, hub.Rooms.RoomOf("conn_a"))
	assert.Equal(t, chathub.StateDisconnected, a.State())
	assert.True(t, a.Closed())
}

func TestManager_DisconnectNotifiesRoomPartner(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)
	go hub.Run()

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	b := newMockClient("conn_b", profile("user_B", 24, "any"))
	hub.RegisterCh <- a
	hub.RegisterCh <- b
	recvEvent(t, a) // user:online for B

	conv := &models.Conversation{ID: "room-1", User1ID: "user_A", User2ID: "user_B"}
	assert.NoError(t, hub.Rooms.Join(a, conv))
	assert.NoError(t, hub.Rooms.Join(b, conv))
	hub.Typing.Start("room-1", "user_A")

	// Act
	hub.UnregisterCh <- a

	// Assert: typing stop, then room departure, then presence change.
	assert.Equal(t, models.EventUserStoppedTyping, recvEvent(t, b).Event)
	assert.Equal(t, models.EventPartnerDisconnected, recvEvent(t, b).Event)
	assert.Equal(t, models.EventUserOffline, recvEvent(t, b).Event)
	assert.False(t, hub.Typing.IsTyping("room-1", "user_A"))
	assert.Equal(t, "room-1", hub.Rooms.RoomOf("conn_b"), "partner stays in the room")
}

func TestManager_OnlineStatusEchoesRequestID(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	b := newMockClient("conn_b", profile("user_B", 24, "any"))
	putOnline(hub, a)
	putOnline(hub, b)

	// Act - the payload is a bare JSON array of user IDs
	hub.HandleEvent(a, models.Event{
		Event:     models.EventGetOnlineStatus,
		RequestID: "req-7",
		Payload:   json.RawMessage(`["user_B", "user_C"]`),
	})

	// Assert
	reply := recvEvent(t, a)
	assert.Equal(t, models.EventOnlineStatus, reply.Event)
	assert.Equal(t, "req-7", reply.RequestID)
	var statuses map[string]bool
	assert.NoError(t, json.Unmarshal(reply.Payload, &statuses))
	assert.True(t, statuses["user_B"])
	assert.False(t, statuses["user_C"])
}

func TestManager_GetAllOnlineUsers(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	b := newMockClient("conn_b", profile("user_B", 24, "any"))
	putOnline(hub, a)
	putOnline(hub, b)

	// Act
	hub.HandleEvent(a, models.Event{Event: models.EventGetAllOnline, RequestID: "req-1"})

	// Assert
	reply := recvEvent(t, a)
	assert.Equal(t, models.EventAllOnline, reply.Event)
	assert.Equal(t, "req-1", reply.RequestID)
	var profiles []models.Profile
	assert.NoError(t, json.Unmarshal(reply.Payload, &profiles))
	assert.Len(t, profiles, 2)
}

func TestManager_UnauthorizedSendRejected(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	putOnline(hub, a)

	req, _ := json.Marshal(models.SendMessageRequest{RoomID: "room-1", Content: "hi"})

	// Act
	hub.HandleEvent(a, models.Event{Event: models.EventMessageSend, Payload: req})

	// Assert: an error event comes back and nothing reaches the store.
	ev := recvEvent(t, a)
	assert.Equal(t, models.EventError, ev.Event)
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

func TestManager_MalformedPayloadKeepsConnectionAlive(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	putOnline(hub, a)

	// Act
	hub.HandleEvent(a, models.Event{
		Event:   models.EventMessageSend,
		Payload: json.RawMessage(`{not json`),
	})

	// Assert: the request fails, the session does not.
	assert.Equal(t, models.EventError, recvEvent(t, a).Event)
	assert.False(t, a.Closed())

	hub.HandleEvent(a, models.Event{Event: models.EventGetAllOnline})
	assert.Equal(t, models.EventAllOnline, recvEvent(t, a).Event)
}

func TestManager_UnknownEventRejected(t *testing.T) {
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	putOnline(hub, a)

	hub.HandleEvent(a, models.Event{Event: "launchMissiles"})

	ev := recvEvent(t, a)
	assert.Equal(t, models.EventError, ev.Event)
}

// Events published through the store's pub/sub channel reach every local
// member of the room, the sender included.
func TestManager_PubSubDeliveryReachesRoomMembers(t *testing.T) {
	// Arrange
	storageMock := newMockStorage()
	hub, _ := newTestHub(storageMock)
	go hub.Run()

	a := newMockClient("conn_a", profile("user_A", 22, "any"))
	b := newMockClient("conn_b", profile("user_B", 24, "any"))
	putOnline(hub, a)
	putOnline(hub, b)

	conv := &models.Conversation{ID: "room-1", User1ID: "user_A", User2ID: "user_B"}
	assert.NoError(t, hub.Rooms.Join(a, conv))
	assert.NoError(t, hub.Rooms.Join(b, conv))

	// Act
	storageMock.Events <- storage.RoomEvent{
		RoomID: "room-1",
		Event:  models.NewEvent(models.EventMessageReceive, models.Message{Content: "hello"}),
	}

	// Assert
	assert.Equal(t, models.EventMessageReceive, recvEvent(t, a).Event)
	assert.Equal(t, models.EventMessageReceive, recvEvent(t, b).Event)
}
