package handlers

import (
	"time"

	"github.com/podforge/podforge/internal/podcast"
)

type Handler struct {
	Svc       *podcast.Service
	startedAt time.Time
}

func NewHandler(svc *podcast.Service) *Handler {
	return &Handler{Svc: svc, startedAt: time.Now()}
}
