package handler

import (
	"strangerly/backend/internal/chathub"
	"strangerly/backend/internal/complaint"
	"strangerly/backend/internal/config"
)

// Handler holds what the HTTP endpoints need from the rest of the server.
type Handler struct {
	Hub        *chathub.ManagerService
	Complaints *complaint.Service
	WebSocket  config.WebSocketConfig
}

func NewHandler(hub *chathub.ManagerService, complaints *complaint.Service, ws config.WebSocketConfig) *Handler {
	return &Handler{Hub: hub, Complaints: complaints, WebSocket: ws}
}
