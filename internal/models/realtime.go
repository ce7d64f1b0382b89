package models

import "encoding/json"

// Імена подій протоколу. Клієнт і сервер обмінюються конвертами Event,
// де Event.Event — одне з цих імен.
const (
	// client → server
	EventFindPartner       = "findPartner"
	EventCancelFindPartner = "cancelFindPartner"
	EventJoin              = "join"
	EventMessageSend       = "message:send"
	EventMessageSeen       = "message:seen"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventGetOnlineStatus   = "getOnlineStatus"
	EventGetAllOnline      = "getAllOnlineUsers"
	EventReport            = "report"

	// server → client
	EventFindPartnerCanceled = "findPartnerCanceled"
	EventJoinSuccess         = "joinSuccess"
	EventMessageReceive      = "message:receive"
	EventUserTyping          = "user:typing"
	EventUserStoppedTyping   = "user:stoppedTyping"
	EventOnlineStatus        = "onlineStatus"
	EventAllOnline           = "allOnlineUsers"
	EventPartnerFound        = "partnerFound"
	EventMatchNotification   = "matchNotification"
	EventWaitingForPartner   = "waitingForPartner"
	EventMatchFailed         = "matchFailed"
	EventUserOnline          = "user:online"
	EventUserOffline         = "user:offline"
	EventPartnerDisconnected = "partnerDisconnected"
	EventError               = "error"
)

// Event — це JSON-конверт протоколу в обох напрямках.
// RequestID використовується RPC-подібними запитами (getOnlineStatus,
// getAllOnlineUsers): сервер відлунює його у відповіді.
type Event struct {
	Event     string          `json:"event"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent будує вихідний конверт, серіалізуючи payload.
// Помилка серіалізації тут означає програмний дефект, тому конверт
// із порожнім payload все одно повертається.
func NewEvent(name string, payload any) Event {
	e := Event{Event: name}
	if payload == nil {
		return e
	}
	if data, err := json.Marshal(payload); err == nil {
		e.Payload = data
	}
	return e
}

// PreferenceFilter — критерії, які шукач висуває до кандидата.
// Не персиститься; живе лише разом із запитом на пошук.
type PreferenceFilter struct {
	AgeMin int    `json:"ageMin"`
	AgeMax int    `json:"ageMax"`
	Gender string `json:"gender"` // "male", "female" або "any"
}

// FindPartnerRequest — payload події findPartner.
type FindPartnerRequest struct {
	AgeRange [2]int `json:"ageRange"`
	Gender   string `json:"gender"`
}

// Filter перетворює запит на фільтр. Нульовий діапазон віку
// трактується як відсутність вікових обмежень.
func (r FindPartnerRequest) Filter() *PreferenceFilter {
	f := &PreferenceFilter{
		AgeMin: r.AgeRange[0],
		AgeMax: r.AgeRange[1],
		Gender: r.Gender,
	}
	if f.AgeMin == 0 && f.AgeMax == 0 {
		f.AgeMin = 1
		f.AgeMax = 150
	}
	if f.Gender == "" {
		f.Gender = GenderAny
	}
	return f
}

// JoinRequest — payload події join.
type JoinRequest struct {
	RoomID string `json:"roomId"`
}

// SendMessageRequest — payload події message:send.
type SendMessageRequest struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
	Type    string `json:"type"`
	ImageID string `json:"imageId,omitempty"`
}

// SeenRequest — payload події message:seen.
type SeenRequest struct {
	MessageID uint `json:"messageId"`
}

// Payload RPC-запиту getOnlineStatus — голий JSON-масив userID,
// окремого типу не потребує.

// ReportRequest — payload події report (скарга на співрозмовника).
type ReportRequest struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
	Type   string `json:"type"` // "Low", "Medium", "Critical"
}

// MatchResult — payload подій partnerFound та matchNotification.
type MatchResult struct {
	RoomID  string  `json:"roomId"`
	Partner Profile `json:"partner"`
}

// RoomPayload — payload подій joinSuccess та partnerDisconnected.
type RoomPayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text,omitempty"`
}

// UserPayload — payload подій user:online, user:offline, user:typing,
// user:stoppedTyping.
type UserPayload struct {
	UserID string `json:"userId"`
}

// ErrorPayload — payload подій error та matchFailed.
type ErrorPayload struct {
	Error string `json:"error"`
}
