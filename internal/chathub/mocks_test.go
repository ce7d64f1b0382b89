package chathub_test

import (
	"sync"
	"testing"
	"time"

	"pairgo/backend/internal/chathub"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface.
// It uses testify/mock to allow flexible expectation setting in tests.
// SubscribeEvents is backed by a real channel so hub tests can inject
// broadcast events directly.
type MockStorage struct {
	mock.Mock
	Events chan storage.RoomEvent
}

func newMockStorage() *MockStorage {
	return &MockStorage{Events: make(chan storage.RoomEvent, 10)}
}

func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) UpdateUserReputation(userID string, delta int) error {
	args := m.Called(userID, delta)
	return args.Error(0)
}

func (m *MockStorage) FindConversation(userA, userB string) (*models.Conversation, error) {
	args := m.Called(userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStorage) CreateConversation(userA, userB string) (*models.Conversation, error) {
	args := m.Called(userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStorage) GetConversationByID(id string) (*models.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStorage) CloseConversation(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) MarkMessageSeen(messageID uint) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockStorage) GetChatHistory(conversationID string) ([]models.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) IsUserBanned(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) BanUser(userID string, duration time.Duration) error {
	args := m.Called(userID, duration)
	return args.Error(0)
}

func (m *MockStorage) UnbanUser(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) SaveComplaint(complaint *models.Complaint) error {
	args := m.Called(complaint)
	return args.Error(0)
}

func (m *MockStorage) UpdateComplaint(complaint *models.Complaint) error {
	args := m.Called(complaint)
	return args.Error(0)
}

func (m *MockStorage) GetComplaintByID(id uint) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStorage) GetComplaintsForUser(userID string, since time.Time) ([]models.Complaint, error) {
	args := m.Called(userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStorage) PublishEvent(roomID string, event models.Event) error {
	args := m.Called(roomID, event)
	return args.Error(0)
}

func (m *MockStorage) SubscribeEvents() (<-chan storage.RoomEvent, func(), error) {
	return m.Events, func() {}, nil
}

// mockClient is a test double for the chathub.Client interface. It accepts
// every state transition and records delivered events on RecvChannel.
type mockClient struct {
	connID  string
	profile models.Profile

	mu     sync.Mutex
	state  chathub.SessionState
	closed bool

	RecvChannel chan models.Event
}

func newMockClient(connID string, profile models.Profile) *mockClient {
	return &mockClient{
		connID:      connID,
		profile:     profile,
		state:       chathub.StateAuthenticated,
		RecvChannel: make(chan models.Event, 16),
	}
}

func (c *mockClient) GetConnID() string          { return c.connID }
func (c *mockClient) GetUserID() string          { return c.profile.UserID }
func (c *mockClient) GetProfile() models.Profile { return c.profile }

func (c *mockClient) State() chathub.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *mockClient) Transition(to chathub.SessionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = to
	return nil
}

func (c *mockClient) GetSendChannel() chan<- models.Event { return c.RecvChannel }

func (c *mockClient) Run() {}

func (c *mockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recvEvent waits for the next event delivered to the client, failing the
// test if nothing arrives in time.
func recvEvent(t *testing.T, c *mockClient) models.Event {
	t.Helper()
	select {
	case ev := <-c.RecvChannel:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s received no event", c.connID)
		return models.Event{}
	}
}

// noEvent asserts that nothing is delivered to the client within a short
// window.
func noEvent(t *testing.T, c *mockClient) {
	t.Helper()
	select {
	case ev := <-c.RecvChannel:
		t.Fatalf("client %s received unexpected event %s", c.connID, ev.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func profile(userID string, age int, gender string) models.Profile {
	return models.Profile{
		UserID:      userID,
		DisplayName: userID,
		Age:         age,
		Gender:      gender,
	}
}

// newTestHub builds a hub with its matcher wired in. Tests start the
// matcher goroutine themselves: queueing commands before Run begins lets
// them exercise the same-instant batching deterministically.
func newTestHub(s *MockStorage) (*chathub.ManagerService, *chathub.MatcherService) {
	hub := chathub.NewManagerService(s, nil)
	matcher := chathub.NewMatcherService(hub, s)
	hub.SetMatcher(matcher)
	return hub, matcher
}

// putOnline registers a client in the presence registry without running the
// hub loop.
func putOnline(hub *chathub.ManagerService, c *mockClient) {
	hub.Presence.MarkOnline(chathub.OnlineEntry{
		UserID:  c.GetUserID(),
		ConnID:  c.GetConnID(),
		Profile: c.GetProfile(),
		Client:  c,
	})
	c.Transition(chathub.StateIdle)
}

func filter(ageMin, ageMax int, gender string) *models.PreferenceFilter {
	return &models.PreferenceFilter{AgeMin: ageMin, AgeMax: ageMax, Gender: gender}
}
