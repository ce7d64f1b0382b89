package chathub

import (
	"fmt"

	"pairgo/backend/internal/models"
)

// SessionState is the explicit lifecycle state of one connection.
// Transitions are enforced by Client implementations, so an illegal
// operation (say, searching while disconnected) is rejected up front
// instead of corrupting the shared registries.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateIdle
	StateSearching
	StateInRoom
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateInRoom:
		return "in_room"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Дозволені переходи станів сесії.
// Disconnected досяжний з будь-якого стану, тому його тут немає.
var allowedTransitions = map[SessionState][]SessionState{
	StateConnecting:    {StateAuthenticated},
	StateAuthenticated: {StateIdle},
	StateIdle:          {StateSearching, StateInRoom},
	StateSearching:     {StateIdle, StateInRoom},
	StateInRoom:        {StateIdle},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to SessionState) bool {
	if to == StateDisconnected {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrIllegalTransition is returned when a session is asked to enter a state
// it cannot reach from its current one.
type ErrIllegalTransition struct {
	From, To SessionState
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal session transition %s -> %s", e.From, e.To)
}

// Client is the interface for one live connection of one user. It abstracts
// the underlying transport, allowing the hub to manage client types uniformly
// and tests to substitute in-memory doubles.
type Client interface {
	// GetConnID returns the opaque identifier of this transport session.
	// It is unique per connection; a reconnect produces a new one.
	GetConnID() string
	// GetUserID returns the anonymous ID of the user behind the connection.
	GetUserID() string
	// GetProfile returns the read-only profile snapshot attached at
	// authentication time.
	GetProfile() models.Profile

	// State returns the current session state.
	State() SessionState
	// Transition moves the session into a new state, or returns
	// *ErrIllegalTransition if the move is not allowed.
	Transition(to SessionState) error

	// GetSendChannel returns the channel through which the hub delivers
	// events intended for this client. It is a send-only channel.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's outgoing channel. Safe to call twice.
	Close()
}
