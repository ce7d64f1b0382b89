package chathub

import (
	"sync"

	"pairgo/backend/internal/models"
)

// OnlineEntry — запис про одного користувача онлайн. Інваріант реєстру:
// рівно один запис на userID; перепідключення замінює запис, а не дублює.
type OnlineEntry struct {
	UserID  string
	ConnID  string
	Profile models.Profile
	Client  Client
}

// PresenceRegistry — двостороння мапа "користувач ↔ активне з'єднання",
// єдине джерело істини для "чи онлайн цей користувач". Усі методи
// потокобезпечні; читання не блокують одне одного.
type PresenceRegistry struct {
	mu     sync.RWMutex
	online map[string]OnlineEntry
	order  []string // userID у порядку появи, для детермінованого Snapshot
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{online: make(map[string]OnlineEntry)}
}

// MarkOnline вставляє або замінює запис для користувача. Якщо існував
// запис з іншим connID (reconnect), повертає його клієнта, щоб хаб міг
// погасити старе з'єднання.
func (p *PresenceRegistry) MarkOnline(entry OnlineEntry) (replaced Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.online[entry.UserID]; ok {
		if prev.ConnID != entry.ConnID {
			replaced = prev.Client
		}
	} else {
		p.order = append(p.order, entry.UserID)
	}
	p.online[entry.UserID] = entry
	return replaced
}

// MarkOffline видаляє запис користувача, але лише якщо він досі належить
// цьому з'єднанню: відкладений unregister старого з'єднання не повинен
// збивати запис, створений перепідключенням. Повертає true, якщо запис
// справді видалено. Виклик для відсутнього запису — no-op.
func (p *PresenceRegistry) MarkOffline(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.online[userID]
	if !ok || entry.ConnID != connID {
		return false
	}
	delete(p.online, userID)
	for i, id := range p.order {
		if id == userID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Get повертає запис користувача, якщо він онлайн.
func (p *PresenceRegistry) Get(userID string) (OnlineEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.online[userID]
	return entry, ok
}

func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[userID]
	return ok
}

// BatchStatus повертає онлайн-статус для кожного із запитаних userID.
func (p *PresenceRegistry) BatchStatus(userIDs []string) map[string]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	statuses := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		_, ok := p.online[id]
		statuses[id] = ok
	}
	return statuses
}

// SnapshotOnline повертає консистентний зріз усіх записів онлайн
// у порядку появи. Matcher ітерується по копії, а не по живій мапі.
func (p *PresenceRegistry) SnapshotOnline() []OnlineEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make([]OnlineEntry, 0, len(p.online))
	for _, id := range p.order {
		snapshot = append(snapshot, p.online[id])
	}
	return snapshot
}

func (p *PresenceRegistry) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.online)
}
