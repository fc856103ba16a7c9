package handlers

import (
	"github.com/maskerade/privchat/internal/chat"
	"github.com/maskerade/privchat/internal/config"
	"github.com/maskerade/privchat/internal/gateway"
	"github.com/maskerade/privchat/internal/history"
	"github.com/maskerade/privchat/internal/pdfext"
	"github.com/maskerade/privchat/internal/tuning"
)

// Handler owns the request-facing collaborators. History may be nil when no
// database is configured; the conversation endpoints still work without it.
type Handler struct {
	Cfg       config.Config
	ChatSvc   *chat.Service
	History   *history.Repo
	Masker    gateway.Masker
	Extractor pdfext.Extractor
	Training  *tuning.Progress
}

func NewHandler(cfg config.Config, chatSvc *chat.Service, hist *history.Repo, masker gateway.Masker, extractor pdfext.Extractor, training *tuning.Progress) *Handler {
	return &Handler{
		Cfg:       cfg,
		ChatSvc:   chatSvc,
		History:   hist,
		Masker:    masker,
		Extractor: extractor,
		Training:  training,
	}
}
