package handler

import (
	"pairgo/backend/internal/chathub"
	"pairgo/backend/internal/storage"
)

// Handler містить посилання на ChatHub та сховище
type Handler struct {
	Hub       *chathub.ManagerService
	Storage   storage.Storage
	jwtSecret []byte
}

func NewHandler(hub *chathub.ManagerService, s storage.Storage, jwtSecret string) *Handler {
	return &Handler{
		Hub:       hub,
		Storage:   s,
		jwtSecret: []byte(jwtSecret),
	}
}
