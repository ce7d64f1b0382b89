package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq" // Необхідний для pq.StringArray
	"gorm.io/gorm"
)

// Константи статі. "any" означає, що користувач не вказав стать —
// такий профіль сумісний із будь-яким фільтром.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderAny    = "any"
)

// User представляє користувача в системі.
// Містить анонімну ідентифікацію, демографічні дані та репутацію.
type User struct {
	ID          string         `gorm:"primaryKey" json:"id"` // Анонімний UUID
	DisplayName string         `json:"display_name"`
	Age         int            `json:"age"`    // Вік користувача
	Gender      string         `json:"gender"` // Стать користувача
	AvatarURL   string         `json:"avatar_url"`
	Language    string         `json:"-"`           // Мова системних повідомлень ("en", "uk", ...)
	Interests   pq.StringArray `gorm:"type:text[]"` // Для зберігання тегів
	RatingScore int            `json:"-"`           // Оцінка співрозмовника

	IsBlocked    bool  `json:"-"`
	BlockEndTime int64 `json:"-"` // Unix-час закінчення бану, 0 — безстроково
	BlockLevel   int   `json:"-"`
	LastBanDate  int64 `json:"-"`
}

// BeforeCreate — це хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Profile повертає незмінний знімок профілю для матчингу.
// Знімок прикріплюється до з'єднання в момент автентифікації.
func (u *User) Profile() Profile {
	return Profile{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Age:         u.Age,
		Gender:      u.Gender,
		AvatarURL:   u.AvatarURL,
		Language:    u.Language,
	}
}

// Profile is the read-only snapshot of a user that the realtime core holds
// for the lifetime of a connection. The persistence store owns the User row;
// the snapshot is never written back.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	AvatarURL   string `json:"avatar_url"`
	Language    string `json:"-"`
}
