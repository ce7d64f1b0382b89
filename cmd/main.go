package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"pairgo/backend/internal/api/handler"
	"pairgo/backend/internal/chathub"
	"pairgo/backend/internal/complaint"
	"pairgo/backend/internal/localization"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies() (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "pairgodb"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	// Перевірка з'єднання Redis
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції (Створення таблиць)
	err = db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Message{},
		&models.Complaint{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting PairGo Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET не встановлено!")
	}

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	loc, err := localization.NewLocalizer(envOr("LOCALES_DIR", "locales"))
	if err != nil {
		log.Printf("Warning: localization disabled: %v", err)
		loc = nil
	}

	// 2. Ініціалізація Chat Hub, Matcher та сервісу скарг
	hub := chathub.NewManagerService(s, loc)
	matcher := chathub.NewMatcherService(hub, s)
	hub.SetMatcher(matcher)
	hub.SetComplaints(complaint.NewService(s))

	// 3. Запуск основних Goroutines
	go hub.Run()     // Головний диспетчер
	go matcher.Run() // Сервіс пошуку

	// 4. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(hub, s, jwtSecret)

	// Роути
	r.POST("/anonid", h.GetAnonID)              // Реєстрація профілю + JWT
	r.GET("/ws", h.ServeWebSocket)              // WebSocket Upgrade
	r.GET("/history/:roomID", h.GetChatHistory) // Історія розмови

	// Запуск HTTP-сервера
	server := &http.Server{
		Addr:           envOr("LISTEN_ADDR", ":8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
