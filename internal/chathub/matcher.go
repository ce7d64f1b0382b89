package chathub

import (
	"log"

	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"
)

type commandKind int

const (
	commandSearch commandKind = iota
	commandCancel
)

// matchCommand — одна команда до matcher'а. І пошук, і скасування йдуть
// через один канал, тому для конкретного з'єднання вони обробляються
// в порядку надходження.
type matchCommand struct {
	kind   commandKind
	client Client
	filter *models.PreferenceFilter
}

// MatcherService відповідає за алгоритм пошуку співрозмовників.
// Єдина goroutine споживає команди з каналу, тож вибір кандидата разом
// із його видаленням з черги — атомарний крок: два одночасні пошуки не
// можуть "виграти" одного й того самого третього користувача.
type MatcherService struct {
	Hub     *ManagerService
	Storage storage.Storage
	Pool    *WaitingPool

	commands chan matchCommand
}

// NewMatcherService створює новий Matcher.
func NewMatcherService(hub *ManagerService, s storage.Storage) *MatcherService {
	return &MatcherService{
		Hub:      hub,
		Storage:  s,
		Pool:     NewWaitingPool(),
		commands: make(chan matchCommand, 64),
	}
}

// Run запускає основну Goroutine Matcher'а. Команди, що встигли
// накопичитися, обробляються одним проходом: спершу всі скасування та
// постановки в чергу, потім пошук пар. Так двоє, що натиснули "шукати"
// в ту саму мить, матчаться взаємно (фаза 1), а не через idle-online
// фазу, де один із них виглядав би бездіяльним.
func (m *MatcherService) Run() {
	log.Println("Matcher Service started.")
	for cmd := range m.commands {
		batch := []matchCommand{cmd}
	drain:
		for {
			select {
			case extra := <-m.commands:
				batch = append(batch, extra)
			default:
				break drain
			}
		}

		var searches []matchCommand
		for _, b := range batch {
			switch b.kind {
			case commandSearch:
				if m.prepareSearch(b.client, b.filter) {
					searches = append(searches, b)
				}
			case commandCancel:
				m.handleCancel(b.client)
			}
		}

		for _, s := range searches {
			// Кого вже підібрав попередній пошук цього ж проходу —
			// або хто встиг скасувати — пропускаємо мовчки.
			if !m.Pool.Contains(s.client.GetConnID()) {
				continue
			}
			m.findMatch(s.client, s.filter)
		}
	}
}

// RequestSearch ставить запит на пошук у чергу команд matcher'а.
func (m *MatcherService) RequestSearch(c Client, filter *models.PreferenceFilter) {
	m.commands <- matchCommand{kind: commandSearch, client: c, filter: filter}
}

// CancelSearch просить matcher зняти з'єднання з пошуку. Якщо матч уже
// відбувся на момент обробки, скасування — no-op: кімната лишається.
func (m *MatcherService) CancelSearch(c Client) {
	m.commands <- matchCommand{kind: commandCancel, client: c}
}

// RemoveConn прибирає з'єднання з черги очікування напряму, в обхід каналу
// команд. Викликається каскадом очищення при дисконекті.
func (m *MatcherService) RemoveConn(connID string) {
	m.Pool.Dequeue(connID)
}

// prepareSearch перевіряє бан, переводить сесію в Searching і ставить
// з'єднання в чергу. Повертає false, якщо пошук відхилено.
func (m *MatcherService) prepareSearch(c Client, filter *models.PreferenceFilter) bool {
	// Забанені не шукають.
	banned, err := m.Storage.IsUserBanned(c.GetUserID())
	if err != nil {
		log.Printf("ERROR: ban check for %s: %v", c.GetUserID(), err)
		m.Hub.send(c, models.NewEvent(models.EventMatchFailed,
			models.ErrorPayload{Error: "search temporarily unavailable"}))
		return false
	}
	if banned {
		m.Hub.send(c, models.NewEvent(models.EventMatchFailed,
			models.ErrorPayload{Error: "user is banned"}))
		return false
	}

	if c.State() != StateSearching {
		if err := c.Transition(StateSearching); err != nil {
			m.Hub.sendError(c, "cannot search in state "+c.State().String())
			return false
		}
	}

	// Повторний пошук перезаписує фільтр, не дублюючи запис.
	m.Pool.Enqueue(WaitingEntry{
		ConnID:  c.GetConnID(),
		UserID:  c.GetUserID(),
		Profile: c.GetProfile(),
		Filter:  filter,
	})
	return true
}

func (m *MatcherService) handleCancel(c Client) {
	if m.Pool.Dequeue(c.GetConnID()) {
		if c.State() == StateSearching {
			if err := c.Transition(StateIdle); err != nil {
				log.Printf("WARNING: cancel transition for %s: %v", c.GetConnID(), err)
			}
		}
	}
	// Підтверджуємо завжди: якщо запису вже не було (матч устиг
	// відбутися), скасування нічого не змінило.
	m.Hub.send(c, models.NewEvent(models.EventFindPartnerCanceled, nil))
}

// findMatch намагається знайти співрозмовника для даного з'єднання:
// спершу серед тих, хто теж шукає (взаємна перевірка фільтрів), потім
// серед бездіяльних онлайн-користувачів (одностороння перевірка).
func (m *MatcherService) findMatch(c Client, filter *models.PreferenceFilter) {
	if m.matchMutual(c, filter) {
		return
	}
	if m.matchIdleOnline(c, filter) {
		return
	}

	// Пару не знайдено: з'єднання лишається в черзі.
	m.Hub.send(c, models.NewEvent(models.EventWaitingForPartner, models.RoomPayload{
		Text: m.Hub.Localizer.T(c.GetProfile().Language, "waiting_for_partner"),
	}))
}

// matchMutual — фаза 1: перебір черги очікування в порядку постановки,
// перший кандидат із двосторонньою сумісністю виграє.
func (m *MatcherService) matchMutual(c Client, filter *models.PreferenceFilter) bool {
	searcher := c.GetProfile()

	for _, candidate := range m.Pool.Snapshot() {
		if candidate.UserID == searcher.UserID {
			continue
		}

		// Для пари, що вже має розмову, нову кімнату не створюємо.
		conv, err := m.Storage.FindConversation(searcher.UserID, candidate.UserID)
		if err != nil {
			m.failSearch(c, err)
			return true
		}
		if conv != nil {
			continue
		}

		if !isMatch(candidate.Profile, filter) || !isMatch(searcher, candidate.Filter) {
			continue
		}

		// Кандидат міг зникнути з черги, поки ми ходили в сховище.
		if !m.Pool.RemovePair(c.GetConnID(), candidate.ConnID) {
			continue
		}

		partner, online := m.Hub.Presence.Get(candidate.UserID)
		if !online || partner.ConnID != candidate.ConnID {
			// Кандидат розірвав з'єднання; шукач повертається в чергу.
			m.Pool.Enqueue(WaitingEntry{
				ConnID: c.GetConnID(), UserID: searcher.UserID,
				Profile: searcher, Filter: filter,
			})
			continue
		}

		conv, err = m.Storage.CreateConversation(searcher.UserID, candidate.UserID)
		if err != nil {
			// Откат: обидва повертаються в чергу, шукач дізнається про збій.
			m.Pool.Enqueue(WaitingEntry{
				ConnID: c.GetConnID(), UserID: searcher.UserID,
				Profile: searcher, Filter: filter,
			})
			m.Pool.Enqueue(WaitingEntry{
				ConnID: candidate.ConnID, UserID: candidate.UserID,
				Profile: candidate.Profile, Filter: candidate.Filter,
			})
			m.failSearch(c, err)
			return true
		}

		if err := m.Hub.Rooms.Join(c, conv); err != nil {
			log.Printf("ERROR: searcher %s failed to join room %s: %v", c.GetConnID(), conv.ID, err)
		}
		if err := m.Hub.Rooms.Join(partner.Client, conv); err != nil {
			log.Printf("ERROR: partner %s failed to join room %s: %v", partner.ConnID, conv.ID, err)
		}

		m.Hub.send(c, models.NewEvent(models.EventPartnerFound,
			models.MatchResult{RoomID: conv.ID, Partner: candidate.Profile}))
		m.Hub.send(partner.Client, models.NewEvent(models.EventPartnerFound,
			models.MatchResult{RoomID: conv.ID, Partner: searcher}))

		log.Printf("Match found: %s and %s in room %s", searcher.UserID, candidate.UserID, conv.ID)
		return true
	}
	return false
}

// matchIdleOnline — фаза 2: шукаємо серед онлайн-користувачів, які не
// шукають і не сидять у кімнаті. Перевіряється лише фільтр шукача —
// бездіяльний користувач нічого не просив, тому його не затягують у
// кімнату, а лише інформують (matchNotification).
func (m *MatcherService) matchIdleOnline(c Client, filter *models.PreferenceFilter) bool {
	searcher := c.GetProfile()

	for _, candidate := range m.Hub.Presence.SnapshotOnline() {
		if candidate.UserID == searcher.UserID {
			continue
		}
		if m.Pool.ContainsUser(candidate.UserID) {
			continue
		}
		if m.Hub.Rooms.RoomOf(candidate.ConnID) != "" {
			continue
		}
		if !isMatch(candidate.Profile, filter) {
			continue
		}

		conv, err := m.Storage.FindConversation(searcher.UserID, candidate.UserID)
		if err != nil {
			m.failSearch(c, err)
			return true
		}
		if conv != nil {
			continue
		}

		// Кандидат міг розірвати з'єднання, поки ми ходили в сховище.
		partner, online := m.Hub.Presence.Get(candidate.UserID)
		if !online || partner.ConnID != candidate.ConnID {
			continue
		}

		// Шукач міг скасувати пошук, поки йшли перевірки.
		if !m.Pool.Dequeue(c.GetConnID()) {
			return true
		}

		conv, err = m.Storage.CreateConversation(searcher.UserID, candidate.UserID)
		if err != nil {
			m.Pool.Enqueue(WaitingEntry{
				ConnID: c.GetConnID(), UserID: searcher.UserID,
				Profile: searcher, Filter: filter,
			})
			m.failSearch(c, err)
			return true
		}

		// У кімнату заходить лише шукач; кандидат приєднається сам
		// через подію join, якщо захоче.
		if err := m.Hub.Rooms.Join(c, conv); err != nil {
			log.Printf("ERROR: searcher %s failed to join room %s: %v", c.GetConnID(), conv.ID, err)
		}

		m.Hub.send(c, models.NewEvent(models.EventPartnerFound,
			models.MatchResult{RoomID: conv.ID, Partner: candidate.Profile}))
		m.Hub.send(partner.Client, models.NewEvent(models.EventMatchNotification,
			models.MatchResult{RoomID: conv.ID, Partner: searcher}))

		log.Printf("Idle-online match: %s with %s in room %s", searcher.UserID, candidate.UserID, conv.ID)
		return true
	}
	return false
}

// failSearch повідомляє шукача про збій сховища. Користувач ніколи не
// "зависає" мовчки: або він лишився в черзі, або отримав явний matchFailed.
func (m *MatcherService) failSearch(c Client, err error) {
	log.Printf("ERROR: match for %s failed: %v", c.GetUserID(), err)
	m.Hub.send(c, models.NewEvent(models.EventMatchFailed,
		models.ErrorPayload{Error: "failed to find a partner, please retry"}))
}

// isMatch — предикат сумісності кандидата з фільтром. Відсутній фільтр
// сумісний з усіма. Вік має лежати в [AgeMin, AgeMax] включно; стать
// сумісна, коли фільтр або кандидат кажуть "any", або вони збігаються.
func isMatch(candidate models.Profile, filter *models.PreferenceFilter) bool {
	if filter == nil {
		return true
	}
	if candidate.Age < filter.AgeMin || candidate.Age > filter.AgeMax {
		return false
	}
	if filter.Gender == models.GenderAny || candidate.Gender == models.GenderAny {
		return true
	}
	return filter.Gender == candidate.Gender
}
