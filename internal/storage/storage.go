package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"pairgo/backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrConversationNotFound повертається, коли розмову не знайдено в БД.
var ErrConversationNotFound = errors.New("conversation not found")

// RoomEvent — подія, опублікована в канал розмови через Redis Pub/Sub.
// RoomID визначає, кому з локальних учасників її доставити.
type RoomEvent struct {
	RoomID string       `json:"room_id"`
	Event  models.Event `json:"event"`
}

type Storage interface {
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	UpdateUser(user *models.User) error
	UpdateUserReputation(userID string, delta int) error

	FindConversation(userA, userB string) (*models.Conversation, error)
	CreateConversation(userA, userB string) (*models.Conversation, error)
	GetConversationByID(id string) (*models.Conversation, error)
	CloseConversation(id string) error

	SaveMessage(msg *models.Message) error
	MarkMessageSeen(messageID uint) error
	GetChatHistory(conversationID string) ([]models.Message, error)

	IsUserBanned(userID string) (bool, error)
	BanUser(userID string, duration time.Duration) error
	UnbanUser(userID string) error

	SaveComplaint(complaint *models.Complaint) error
	UpdateComplaint(complaint *models.Complaint) error
	GetComplaintByID(id uint) (*models.Complaint, error)
	GetComplaintsForUser(userID string, since time.Time) ([]models.Complaint, error)

	PublishEvent(roomID string, event models.Event) error
	SubscribeEvents() (<-chan RoomEvent, func(), error)
}

// broadcastChannel — єдиний Redis-канал, через який relay розсилає
// збережені повідомлення між учасниками кімнат.
const broadcastChannel = "chat:broadcast"

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveUser зберігає користувача в PostgreSQL
func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// GetUserByID повертає користувача за його анонімним ID.
func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// UpdateUserReputation атомарно змінює RatingScore на delta.
func (s *Service) UpdateUserReputation(userID string, delta int) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("rating_score", gorm.Expr("rating_score + ?", delta)).Error
}

// FindConversation шукає розмову між двома користувачами незалежно від
// порядку. Повертає (nil, nil), якщо такої розмови ще не було.
func (s *Service) FindConversation(userA, userB string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
		userA, userB, userB, userA).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateConversation створює розмову для пари або повертає наявну.
// ID розмови є водночас ідентифікатором realtime-кімнати.
func (s *Service) CreateConversation(userA, userB string) (*models.Conversation, error) {
	existing, err := s.FindConversation(userA, userB)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		User1ID:   userA,
		User2ID:   userB,
		IsActive:  true,
		StartedAt: time.Now(),
	}
	if err := s.DB.Create(conv).Error; err != nil {
		log.Printf("ERROR: Failed to create conversation for %s and %s: %v", userA, userB, err)
		return nil, err
	}
	return conv, nil
}

func (s *Service) GetConversationByID(id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get conversation %s: %v", id, err)
		return nil, err
	}
	return &conv, nil
}

// CloseConversation закриває розмову, встановлюючи IsActive = false та EndedAt = NOW()
func (s *Service) CloseConversation(id string) error {
	return s.DB.Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  gorm.Expr("NOW()"),
		}).Error
}

// SaveMessage зберігає повідомлення в PostgreSQL. Після успішного запису
// msg.ID та msg.CreatedAt заповнені GORM — саме їх relay розсилає клієнтам.
func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for conversation %s: %v", msg.ConversationID, err)
		return err
	}
	return nil
}

// MarkMessageSeen позначає збережене повідомлення прочитаним.
func (s *Service) MarkMessageSeen(messageID uint) error {
	return s.DB.Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("seen", true).Error
}

// GetChatHistory отримує історію повідомлень для розмови
func (s *Service) GetChatHistory(conversationID string) ([]models.Message, error) {
	var history []models.Message
	// Завантажуємо історію, сортуючи за часом створення
	if err := s.DB.Where("conversation_id = ?", conversationID).
		Order("created_at asc").Find(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return history, nil
		}
		log.Printf("ERROR: Failed to get chat history for conversation %s: %v", conversationID, err)
		return nil, err
	}
	return history, nil
}

// IsUserBanned перевіряє статус бану в Redis (швидка перевірка)
func (s *Service) IsUserBanned(userID string) (bool, error) {
	key := "ban:" + userID
	status, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// BanUser виставляє ключ бану в Redis та прапорець у PostgreSQL.
// duration == 0 означає безстроковий бан.
func (s *Service) BanUser(userID string, duration time.Duration) error {
	key := "ban:" + userID
	if err := s.Redis.Set(s.Ctx, key, "active", duration).Err(); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"is_blocked":    true,
		"last_ban_date": time.Now().Unix(),
	}
	if duration > 0 {
		updates["block_end_time"] = time.Now().Add(duration).Unix()
	}
	return s.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (s *Service) UnbanUser(userID string) error {
	if err := s.Redis.Del(s.Ctx, "ban:"+userID).Err(); err != nil {
		return err
	}
	return s.DB.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_blocked":     false,
			"block_end_time": 0,
		}).Error
}

func (s *Service) SaveComplaint(complaint *models.Complaint) error {
	if complaint.Status == "" {
		complaint.Status = models.ComplaintStatusNew
	}

	if err := s.DB.Create(complaint).Error; err != nil {
		log.Printf("ERROR: Failed to save complaint for conversation %s: %v",
			complaint.ConversationID, err)
		return err
	}
	return nil
}

func (s *Service) UpdateComplaint(complaint *models.Complaint) error {
	return s.DB.Save(complaint).Error
}

func (s *Service) GetComplaintByID(id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.DB.First(&complaint, id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

// GetComplaintsForUser повертає скарги на користувача, подані після since.
func (s *Service) GetComplaintsForUser(userID string, since time.Time) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.DB.Where("reported_user_id = ? AND created_at > ?", userID, since).
		Find(&complaints).Error
	if err != nil {
		return nil, err
	}
	return complaints, nil
}

// PublishEvent публікує подію кімнати в Redis Pub/Sub
func (s *Service) PublishEvent(roomID string, event models.Event) error {
	payload, err := json.Marshal(RoomEvent{RoomID: roomID, Event: event})
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, broadcastChannel, payload).Err()
}

// SubscribeEvents підписується на канал розсилки та повертає канал подій
// разом із функцією зупинки підписки.
func (s *Service) SubscribeEvents() (<-chan RoomEvent, func(), error) {
	pubsub := s.Redis.Subscribe(s.Ctx, broadcastChannel)
	// Перевіряємо, що підписка справді встановлена.
	if _, err := pubsub.Receive(s.Ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan RoomEvent)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("Error unmarshalling Redis message: %v", err)
				continue
			}
			out <- ev
		}
	}()

	return out, func() { pubsub.Close() }, nil
}
