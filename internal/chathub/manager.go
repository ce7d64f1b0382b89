package chathub

import (
	"encoding/json"
	"log"

	"pairgo/backend/internal/complaint"
	"pairgo/backend/internal/localization"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"
)

// ManagerService — центральний хаб relay-я. Володіє чотирма спільними
// реєстрами (presence, черга очікування через Matcher, кімнати, typing),
// приймає реєстрацію/зняття з'єднань і роздає події з Redis Pub/Sub.
// Реєстри — синглтони на весь час життя процесу; ніхто поза ядром їх
// не мутує напряму.
type ManagerService struct {
	Presence *PresenceRegistry
	Rooms    *RoomManager
	Typing   *TypingTracker
	Matcher  *MatcherService

	RegisterCh   chan Client
	UnregisterCh chan Client

	Storage    storage.Storage
	Localizer  *localization.Localizer
	Complaints *complaint.Service
}

// NewManagerService збирає хаб і його реєстри. Matcher створюється
// окремо (він тримає посилання на хаб) і підключається через SetMatcher.
func NewManagerService(s storage.Storage, loc *localization.Localizer) *ManagerService {
	typing := NewTypingTracker()
	return &ManagerService{
		Presence:     NewPresenceRegistry(),
		Typing:       typing,
		Rooms:        NewRoomManager(s, typing, loc),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Storage:      s,
		Localizer:    loc,
	}
}

func (m *ManagerService) SetMatcher(matcher *MatcherService) {
	m.Matcher = matcher
}

func (m *ManagerService) SetComplaints(svc *complaint.Service) {
	m.Complaints = svc
}

// Run — головний цикл хаба: реєстрація, зняття та доставка подій,
// опублікованих у Redis.
func (m *ManagerService) Run() {
	events, stop, err := m.Storage.SubscribeEvents()
	if err != nil {
		log.Printf("ERROR: Failed to subscribe to broadcast channel: %v", err)
		events = nil
	} else {
		defer stop()
	}

	for {
		select {
		case c := <-m.RegisterCh:
			m.handleRegister(c)
		case c := <-m.UnregisterCh:
			m.handleUnregister(c)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.Rooms.Deliver(ev)
		}
	}
}

// handleRegister вводить з'єднання в реєстр присутності. Якщо користувач
// уже був онлайн з іншим з'єднанням, старе атомарно замінюється і
// гаситься — двох живих записів для одного userID не буває.
func (m *ManagerService) handleRegister(c Client) {
	replaced := m.Presence.MarkOnline(OnlineEntry{
		UserID:  c.GetUserID(),
		ConnID:  c.GetConnID(),
		Profile: c.GetProfile(),
		Client:  c,
	})
	if replaced != nil {
		log.Printf("Reconnect: replacing connection %s of user %s", replaced.GetConnID(), c.GetUserID())
		m.cleanupConn(replaced)
		replaced.Close()
	}

	if err := c.Transition(StateIdle); err != nil {
		log.Printf("WARNING: register transition for %s: %v", c.GetConnID(), err)
	}

	m.broadcastAll(models.NewEvent(models.EventUserOnline,
		models.UserPayload{UserID: c.GetUserID()}), c.GetUserID())
	log.Printf("Client registered: user %s, conn %s", c.GetUserID(), c.GetConnID())
}

// handleUnregister — каскад очищення при дисконекті. Виконуються всі
// чотири видалення (черга, кімната+typing, присутність), навіть якщо
// з'єднання так і не було підібране; каскад ідемпотентний.
func (m *ManagerService) handleUnregister(c Client) {
	m.cleanupConn(c)

	if m.Presence.MarkOffline(c.GetUserID(), c.GetConnID()) {
		m.broadcastAll(models.NewEvent(models.EventUserOffline,
			models.UserPayload{UserID: c.GetUserID()}), c.GetUserID())
	}

	if err := c.Transition(StateDisconnected); err != nil {
		log.Printf("WARNING: disconnect transition for %s: %v", c.GetConnID(), err)
	}
	c.Close()
	log.Printf("Client unregistered: user %s, conn %s", c.GetUserID(), c.GetConnID())
}

// cleanupConn прибирає сліди конкретного з'єднання з черги пошуку та
// кімнат. Typing-стан чиститься всередині Rooms.Leave.
func (m *ManagerService) cleanupConn(c Client) {
	if m.Matcher != nil {
		m.Matcher.RemoveConn(c.GetConnID())
	}
	m.Rooms.Leave(c)
}

// HandleEvent розбирає один конверт від клієнта. Викликається з readPump
// голоруч, тому події одного з'єднання обробляються в порядку прибуття,
// а блокуючі походи в сховище не зупиняють інші з'єднання.
func (m *ManagerService) HandleEvent(c Client, ev models.Event) {
	switch ev.Event {
	case models.EventFindPartner:
		var req models.FindPartnerRequest
		if !m.parse(c, ev.Payload, &req) {
			return
		}
		m.Matcher.RequestSearch(c, req.Filter())

	case models.EventCancelFindPartner:
		m.Matcher.CancelSearch(c)

	case models.EventJoin:
		var req models.JoinRequest
		if !m.parse(c, ev.Payload, &req) {
			return
		}
		if err := m.Rooms.JoinRoom(c, req.RoomID); err != nil {
			m.sendError(c, err.Error())
			return
		}
		m.send(c, models.NewEvent(models.EventJoinSuccess, models.RoomPayload{RoomID: req.RoomID}))

	case models.EventMessageSend:
		var req models.SendMessageRequest
		if !m.parse(c, ev.Payload, &req) {
			return
		}
		if _, err := m.Rooms.SendMessage(c, req); err != nil {
			m.sendError(c, err.Error())
		}

	case models.EventMessageSeen:
		var req models.SeenRequest
		if !m.parse(c, ev.Payload, &req) {
			return
		}
		if err := m.Storage.MarkMessageSeen(req.MessageID); err != nil {
			m.sendError(c, "failed to mark message seen")
		}

	case models.EventTypingStart:
		m.handleTyping(c, true)

	case models.EventTypingStop:
		m.handleTyping(c, false)

	case models.EventGetOnlineStatus:
		// Payload — голий JSON-масив userID, без обгортки-об'єкта.
		var userIDs []string
		if !m.parse(c, ev.Payload, &userIDs) {
			return
		}
		reply := models.NewEvent(models.EventOnlineStatus, m.Presence.BatchStatus(userIDs))
		reply.RequestID = ev.RequestID
		m.send(c, reply)

	case models.EventGetAllOnline:
		profiles := make([]models.Profile, 0)
		for _, entry := range m.Presence.SnapshotOnline() {
			profiles = append(profiles, entry.Profile)
		}
		reply := models.NewEvent(models.EventAllOnline, profiles)
		reply.RequestID = ev.RequestID
		m.send(c, reply)

	case models.EventReport:
		var req models.ReportRequest
		if !m.parse(c, ev.Payload, &req) {
			return
		}
		m.handleReport(c, req)

	default:
		m.sendError(c, "unknown event: "+ev.Event)
	}
}

// handleTyping транслює сигнал набору іншим учасникам кімнати.
// Повторний start (або stop без start) нікого не турбує.
func (m *ManagerService) handleTyping(c Client, start bool) {
	roomID := m.Rooms.RoomOf(c.GetConnID())
	if roomID == "" {
		m.sendError(c, "not in a room")
		return
	}

	payload := models.UserPayload{UserID: c.GetUserID()}
	if start {
		if m.Typing.Start(roomID, c.GetUserID()) {
			m.Rooms.Broadcast(roomID, models.NewEvent(models.EventUserTyping, payload), c.GetConnID())
		}
	} else {
		if m.Typing.Stop(roomID, c.GetUserID()) {
			m.Rooms.Broadcast(roomID, models.NewEvent(models.EventUserStoppedTyping, payload), c.GetConnID())
		}
	}
}

// handleReport фіксує скаргу на співрозмовника в поточній кімнаті.
func (m *ManagerService) handleReport(c Client, req models.ReportRequest) {
	if m.Complaints == nil {
		m.sendError(c, "reports are not accepted")
		return
	}
	if m.Rooms.RoomOf(c.GetConnID()) != req.RoomID {
		m.sendError(c, ErrNotRoomMember.Error())
		return
	}

	conv, err := m.Storage.GetConversationByID(req.RoomID)
	if err != nil {
		m.sendError(c, "failed to file report")
		return
	}
	reported := conv.PartnerOf(c.GetUserID())
	if reported == "" {
		m.sendError(c, ErrNotRoomMember.Error())
		return
	}

	err = m.Complaints.HandleComplaint(&models.Complaint{
		ReporterID:     c.GetUserID(),
		ReportedUserID: reported,
		ConversationID: req.RoomID,
		ComplaintType:  req.Type,
		Reason:         req.Reason,
	})
	if err != nil {
		log.Printf("ERROR: complaint from %s: %v", c.GetUserID(), err)
		m.sendError(c, "failed to file report")
	}
}

// parse розбирає payload; помилка протоколу вбиває лише цей запит,
// з'єднання живе далі.
func (m *ManagerService) parse(c Client, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		m.sendError(c, "malformed payload")
		return false
	}
	return true
}

// broadcastAll надсилає подію всім онлайн-клієнтам, окрім exceptUserID.
func (m *ManagerService) broadcastAll(ev models.Event, exceptUserID string) {
	for _, entry := range m.Presence.SnapshotOnline() {
		if entry.UserID == exceptUserID {
			continue
		}
		m.send(entry.Client, ev)
	}
}

// send доставляє подію клієнту, не блокуючись на повільному споживачі.
func (m *ManagerService) send(c Client, ev models.Event) {
	select {
	case c.GetSendChannel() <- ev:
	default:
		log.Printf("WARNING: dropping %s event for slow client %s", ev.Event, c.GetConnID())
	}
}

func (m *ManagerService) sendError(c Client, msg string) {
	m.send(c, models.NewEvent(models.EventError, models.ErrorPayload{Error: msg}))
}
