package chathub

import "sync"

// TypingTracker — множина користувачів, що зараз набирають текст,
// у розрізі кімнат. Сервер не веде таймерів неактивності: зупинка —
// обов'язок клієнта, але стан обов'язково чиститься при виході з
// кімнати та при дисконекті.
type TypingTracker struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{} // roomID → set of userID
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{rooms: make(map[string]map[string]struct{})}
}

// Start додає користувача до множини "набирає" кімнати.
// Повертає false, якщо він там уже був.
func (t *TypingTracker) Start(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.rooms[roomID]
	if !ok {
		users = make(map[string]struct{})
		t.rooms[roomID] = users
	}
	if _, ok := users[userID]; ok {
		return false
	}
	users[userID] = struct{}{}
	return true
}

// Stop видаляє користувача з множини; no-op, якщо його там немає.
// Повертає true, якщо запис справді видалено.
func (t *TypingTracker) Stop(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := users[userID]; !ok {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.rooms, roomID)
	}
	return true
}

// IsTyping повідомляє, чи набирає користувач у цій кімнаті.
func (t *TypingTracker) IsTyping(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.rooms[roomID][userID]
	return ok
}

// Typing повертає всіх, хто зараз набирає в кімнаті.
func (t *TypingTracker) Typing(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := make([]string, 0, len(t.rooms[roomID]))
	for id := range t.rooms[roomID] {
		users = append(users, id)
	}
	return users
}
