package chathub

import (
	"errors"
	"log"
	"sync"

	"pairgo/backend/internal/localization"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"
)

var (
	// ErrNotRoomMember повертається на спробу приєднатися до чужої кімнати
	// або надіслати повідомлення в кімнату, в якій з'єднання не перебуває.
	ErrNotRoomMember = errors.New("connection is not a member of this room")
	// ErrRoomNotFound повертається, коли кімната не має розмови в сховищі.
	ErrRoomNotFound = errors.New("room not found")
)

// RoomManager веде відповідність "з'єднання → кімната" (щонайбільше одна
// активна кімната на з'єднання) та розсилає події учасникам кімнати.
// Кімната не знищується явно: коли обидва учасники вийшли, пошук
// членства просто нічого не повертає.
type RoomManager struct {
	mu         sync.RWMutex
	membership map[string]string            // connID → roomID
	members    map[string]map[string]Client // roomID → connID → Client

	Storage   storage.Storage
	Typing    *TypingTracker
	Localizer *localization.Localizer
}

func NewRoomManager(s storage.Storage, typing *TypingTracker, loc *localization.Localizer) *RoomManager {
	return &RoomManager{
		membership: make(map[string]string),
		members:    make(map[string]map[string]Client),
		Storage:    s,
		Typing:     typing,
		Localizer:  loc,
	}
}

// Create просить сховище створити розмову для пари (або повернути наявну).
// Її ID і є roomID.
func (r *RoomManager) Create(userA, userB string) (*models.Conversation, error) {
	return r.Storage.CreateConversation(userA, userB)
}

// JoinRoom перевіряє через сховище, що користувач з'єднання є одним із
// двох учасників розмови roomID, і підписує з'єднання на розсилку кімнати.
func (r *RoomManager) JoinRoom(c Client, roomID string) error {
	conv, err := r.Storage.GetConversationByID(roomID)
	if err != nil {
		if errors.Is(err, storage.ErrConversationNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	return r.Join(c, conv)
}

// Join підписує з'єднання на вже завантажену розмову. Якщо з'єднання
// перебувало в іншій кімнаті, воно спершу виходить із неї.
func (r *RoomManager) Join(c Client, conv *models.Conversation) error {
	if !conv.HasParticipant(c.GetUserID()) {
		return ErrNotRoomMember
	}

	if current := r.RoomOf(c.GetConnID()); current != "" && current != conv.ID {
		r.Leave(c)
	}

	if err := c.Transition(StateInRoom); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.membership[c.GetConnID()] = conv.ID
	if r.members[conv.ID] == nil {
		r.members[conv.ID] = make(map[string]Client)
	}
	r.members[conv.ID][c.GetConnID()] = c
	return nil
}

// Leave відписує з'єднання від його кімнати, чистить typing-стан і
// сповіщає другого учасника (partnerDisconnected). Ідемпотентний:
// якщо з'єднання не в кімнаті, нічого не відбувається.
func (r *RoomManager) Leave(c Client) (roomID string, left bool) {
	connID := c.GetConnID()

	r.mu.Lock()
	roomID, left = r.membership[connID]
	if !left {
		r.mu.Unlock()
		return "", false
	}
	delete(r.membership, connID)
	delete(r.members[roomID], connID)
	if len(r.members[roomID]) == 0 {
		delete(r.members, roomID)
	}
	r.mu.Unlock()

	// Користувач не може лишатися "набирає" в кімнаті, якої не займає.
	if r.Typing.Stop(roomID, c.GetUserID()) {
		r.Broadcast(roomID, models.NewEvent(models.EventUserStoppedTyping,
			models.UserPayload{UserID: c.GetUserID()}), connID)
	}

	// Текст локалізується мовою отримувача, а не того, хто вийшов.
	for _, member := range r.MembersOf(roomID) {
		if member.GetConnID() == connID {
			continue
		}
		r.deliver(member, models.NewEvent(models.EventPartnerDisconnected, models.RoomPayload{
			RoomID: roomID,
			Text:   r.Localizer.T(member.GetProfile().Language, "partner_disconnected"),
		}))
	}

	if c.State() == StateInRoom {
		if err := c.Transition(StateIdle); err != nil {
			log.Printf("WARNING: leave transition for %s: %v", connID, err)
		}
	}
	return roomID, true
}

// RoomOf повертає кімнату, в якій зараз перебуває з'єднання, або "".
func (r *RoomManager) RoomOf(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membership[connID]
}

// MembersOf повертає поточних учасників кімнати.
func (r *RoomManager) MembersOf(roomID string) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Client, 0, len(r.members[roomID]))
	for _, c := range r.members[roomID] {
		members = append(members, c)
	}
	return members
}

// Broadcast доставляє подію всім поточним учасникам кімнати, окрім
// exceptConnID (порожній рядок — усім). Повільний клієнт подію втрачає:
// доставка — best effort, поки з'єднання живе.
func (r *RoomManager) Broadcast(roomID string, event models.Event, exceptConnID string) {
	for _, member := range r.MembersOf(roomID) {
		if member.GetConnID() == exceptConnID {
			continue
		}
		r.deliver(member, event)
	}
}

func (r *RoomManager) deliver(member Client, event models.Event) {
	select {
	case member.GetSendChannel() <- event:
	default:
		log.Printf("WARNING: dropping %s event for slow client %s", event.Event, member.GetConnID())
	}
}

// SendMessage авторизує відправника, персистить повідомлення і аж тоді
// публікує його в канал кімнати. Порядок "persist, потім broadcast"
// гарантує, що кожне розіслане повідомлення вже має остаточний
// серверний ID та час; помилка персистенції скасовує розсилку.
func (r *RoomManager) SendMessage(c Client, req models.SendMessageRequest) (*models.Message, error) {
	if r.RoomOf(c.GetConnID()) != req.RoomID {
		return nil, ErrNotRoomMember
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg := &models.Message{
		ConversationID: req.RoomID,
		SenderID:       c.GetUserID(),
		Content:        req.Content,
		Type:           msgType,
		ImageRef:       req.ImageID,
	}
	if err := r.Storage.SaveMessage(msg); err != nil {
		return nil, err
	}

	if err := r.Storage.PublishEvent(req.RoomID,
		models.NewEvent(models.EventMessageReceive, msg)); err != nil {
		log.Printf("ERROR: Failed to publish message %d to room %s: %v", msg.ID, req.RoomID, err)
		return nil, err
	}
	return msg, nil
}

// Deliver роздає подію, що прийшла з Redis Pub/Sub, локальним учасникам
// кімнати. Відправник теж отримує message:receive — разом із серверним ID.
func (r *RoomManager) Deliver(ev storage.RoomEvent) {
	r.Broadcast(ev.RoomID, ev.Event, "")
}
