package chathub

import (
	"sync"
	"time"

	"pairgo/backend/internal/models"
)

// WaitingEntry — одне з'єднання, яке зараз шукає співрозмовника.
// Живе лише під час пошуку: видаляється при матчі, скасуванні
// або розриві з'єднання.
type WaitingEntry struct {
	ConnID     string
	UserID     string
	Profile    models.Profile
	Filter     *models.PreferenceFilter
	EnqueuedAt time.Time
}

// WaitingPool — множина з'єднань, що активно шукають пару. Порядок
// обходу — порядок постановки в чергу, тому перебір кандидатів
// детермінований і тестований.
type WaitingPool struct {
	mu      sync.Mutex
	entries map[string]WaitingEntry // ключ — connID
	order   []string
}

func NewWaitingPool() *WaitingPool {
	return &WaitingPool{entries: make(map[string]WaitingEntry)}
}

// Enqueue додає запис або замінює наявний для цього connID: повторний
// пошук із новим фільтром перезаписує, а не дублює. При заміні позиція
// в черзі зберігається.
func (w *WaitingPool) Enqueue(entry WaitingEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}
	if _, ok := w.entries[entry.ConnID]; !ok {
		w.order = append(w.order, entry.ConnID)
	}
	w.entries[entry.ConnID] = entry
}

// Dequeue видаляє запис; ідемпотентний. Повертає true, якщо запис існував.
func (w *WaitingPool) Dequeue(connID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.remove(connID)
}

// RemovePair атомарно видаляє обидва записи пари. Якщо хоча б одного з них
// уже немає (скасування або дисконект під час перевірок matcher'а),
// нічого не змінюється і повертається false. Саме цей крок робить
// рішення про матч атомарним щодо конкурентних видалень.
func (w *WaitingPool) RemovePair(connA, connB string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.entries[connA]; !ok {
		return false
	}
	if _, ok := w.entries[connB]; !ok {
		return false
	}
	w.remove(connA)
	w.remove(connB)
	return true
}

func (w *WaitingPool) remove(connID string) bool {
	if _, ok := w.entries[connID]; !ok {
		return false
	}
	delete(w.entries, connID)
	for i, id := range w.order {
		if id == connID {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

func (w *WaitingPool) Contains(connID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.entries[connID]
	return ok
}

// ContainsUser повідомляє, чи шукає зараз пару якесь з'єднання цього
// користувача. Потрібен фазі idle-online: той, хто вже в черзі, не є
// "бездіяльним" кандидатом.
func (w *WaitingPool) ContainsUser(userID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range w.entries {
		if entry.UserID == userID {
			return true
		}
	}
	return false
}

// Snapshot повертає копію черги в порядку постановки.
func (w *WaitingPool) Snapshot() []WaitingEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	snapshot := make([]WaitingEntry, 0, len(w.entries))
	for _, id := range w.order {
		snapshot = append(snapshot, w.entries[id])
	}
	return snapshot
}

func (w *WaitingPool) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}
