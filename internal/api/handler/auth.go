package handler

import (
	"errors"
	"net/http"
	"time"

	"pairgo/backend/internal/config"
	"pairgo/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	jwt "github.com/golang-jwt/jwt/v5"
)

// RegisterRequest — тіло POST /anonid: демографія для матчингу.
type RegisterRequest struct {
	DisplayName string   `json:"display_name"`
	Age         int      `json:"age" binding:"required"`
	Gender      string   `json:"gender"`
	AvatarURL   string   `json:"avatar_url"`
	Language    string   `json:"language"`
	Interests   []string `json:"interests"`
}

// generateJWT генерує JWT з анонімним ID
func (h *Handler) generateJWT(anonID string) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": anonID,
		"exp":     time.Now().Add(time.Hour * 72).Unix(),
		"iss":     "pairgo-service", // Видавець
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// validateAndGetAnonID перевіряє підпис і строк дії токена та дістає anon_id.
func (h *Handler) validateAndGetAnonID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	anonID, ok := claims["anon_id"].(string)
	if !ok || anonID == "" {
		return "", errors.New("anon_id claim missing")
	}
	return anonID, nil
}

// GetAnonID створює анонімного користувача з профілем для матчингу
// та повертає JWT
func (h *Handler) GetAnonID(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Age < config.MinAge || req.Age > config.MaxAge {
		c.JSON(http.StatusBadRequest, gin.H{"error": "age must be between 18 and 99"})
		return
	}
	switch req.Gender {
	case models.GenderMale, models.GenderFemale, models.GenderAny:
	case "":
		req.Gender = models.GenderAny
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gender"})
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	user := &models.User{
		DisplayName: req.DisplayName,
		Age:         req.Age,
		Gender:      req.Gender,
		AvatarURL:   req.AvatarURL,
		Language:    req.Language,
		Interests:   pq.StringArray(req.Interests),
		RatingScore: config.InitialReputation,
	}
	if err := h.Storage.SaveUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := h.generateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": user.ID})
}
