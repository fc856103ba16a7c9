package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maskerade/privchat/internal/chat"
	"github.com/maskerade/privchat/internal/common"
	"github.com/maskerade/privchat/internal/history"
)

func (h *Handler) Conversation(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[Conversation] invalid request body: %v", err)
		common.ServerError(c, err)
		return
	}
	h.conversationInternal(c, req)
}

func (h *Handler) conversationInternal(c *gin.Context, req chat.Request) {
	if h.Cfg.StreamResponses {
		h.streamConversation(c, req)
		return
	}

	envelope, err := h.ChatSvc.Respond(c.Request.Context(), req)
	if err != nil {
		log.Printf("[Conversation] Error in conversation - %v", err)
		common.ServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// streamConversation writes one self-contained JSON frame per line. An error
// before the first frame becomes a plain 500; a later error is reported as a
// final {error} line. It returns the last two cumulative frame texts so
// callers can persist the completed exchange; completed is false when the
// stream errored or produced no frames.
func (h *Handler) streamConversation(c *gin.Context, req chat.Request) (finalText, prevText string, completed bool) {
	events, errs := h.ChatSvc.RespondStream(c.Request.Context(), req)

	flusher, _ := c.Writer.(http.Flusher)
	wrote := false
	for ev := range events {
		if !wrote {
			c.Header("Content-Type", "text/event-stream")
			c.Status(http.StatusOK)
			wrote = true
		}
		line, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		_, _ = c.Writer.Write(append(line, '\n'))
		if flusher != nil {
			flusher.Flush()
		}
		prevText = finalText
		finalText = ev.Choices[0].Messages[0].Content
	}

	if err := <-errs; err != nil {
		log.Printf("[Conversation] Error in streaming conversation - %v", err)
		if !wrote {
			common.ServerError(c, err)
			return "", "", false
		}
		line, _ := json.Marshal(gin.H{"error": err.Error()})
		_, _ = c.Writer.Write(append(line, '\n'))
		if flusher != nil {
			flusher.Flush()
		}
		return "", "", false
	}
	return finalText, prevText, wrote
}

// HistoryGenerate resolves the caller from the email header, bumps interaction
// metadata, then behaves as /conversation and persists the exchanged turn.
func (h *Handler) HistoryGenerate(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[HistoryGenerate] invalid request body: %v", err)
		common.ServerError(c, err)
		return
	}

	if h.History == nil {
		h.conversationInternal(c, req)
		return
	}

	ctx := c.Request.Context()

	email := c.GetHeader("email")
	if email == "" {
		common.ServerError(c, errors.New("email header missing"))
		return
	}
	if err := h.History.CreateUser(ctx, email); err != nil {
		log.Printf("[HistoryGenerate] create user failed: %v", err)
		common.ServerError(c, err)
		return
	}
	userID, err := h.History.GetUserID(ctx, email)
	if err != nil {
		log.Printf("[HistoryGenerate] get user id failed: %v", err)
		common.ServerError(c, err)
		return
	}
	log.Printf("[HistoryGenerate] User id: %s", userID)

	if len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != "user" {
		common.ServerError(c, errors.New("No user message found"))
		return
	}

	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
		if err := h.History.CreateConversation(ctx, userID, req.ConversationID, "chat"); err != nil {
			log.Printf("[HistoryGenerate] create conversation failed: %v", err)
			common.ServerError(c, err)
			return
		}
	}
	if err := h.History.TouchUser(ctx, userID); err != nil {
		log.Printf("[HistoryGenerate] touch user failed: %v", err)
	}

	if h.Cfg.StreamResponses {
		finalText, prevText, completed := h.streamConversation(c, req)
		if completed {
			h.persistStreamedTurn(c, req, finalText, prevText)
		}
		return
	}

	envelope, err := h.ChatSvc.Respond(ctx, req)
	if err != nil {
		log.Printf("[HistoryGenerate] Error in conversation - %v", err)
		common.ServerError(c, err)
		return
	}

	h.persistTurn(c, req, envelope)
	c.JSON(http.StatusOK, envelope)
}

// persistStreamedTurn stores the exchange after a streamed response. Stream
// frames carry no masking audit metadata, so the user turn is stored without
// it; in private mode the frame before the final unmasked one holds the full
// masked reply and is kept as the assistant's masked content.
func (h *Handler) persistStreamedTurn(c *gin.Context, req chat.Request, finalText, prevText string) {
	ctx := c.Request.Context()

	userTurn := req.Messages[len(req.Messages)-1]
	if err := h.History.CreateMessage(ctx, &history.Message{
		ConversationID: req.ConversationID,
		Role:           "user",
		Content:        userTurn.Content,
		IsFileData:     userTurn.IsFileContent,
	}); err != nil {
		log.Printf("[HistoryGenerate] persist user message failed: %v", err)
		return
	}

	assistantMsg := &history.Message{
		ConversationID: req.ConversationID,
		Role:           "assistant",
		Content:        finalText,
	}
	if req.Private() && prevText != "" {
		masked := prevText
		assistantMsg.MaskedContent = &masked
	}
	if err := h.History.CreateMessage(ctx, assistantMsg); err != nil {
		log.Printf("[HistoryGenerate] persist assistant message failed: %v", err)
	}
}

// persistTurn appends the newest user turn and the assistant reply, with the
// masking metadata computed during this call. Best-effort: a store failure is
// logged but does not fail an already-computed response.
func (h *Handler) persistTurn(c *gin.Context, req chat.Request, envelope *chat.ResponseEnvelope) {
	ctx := c.Request.Context()
	reply := envelope.Choices[0].Messages[0]

	userTurn := req.Messages[len(req.Messages)-1]
	userMsg := &history.Message{
		ConversationID: req.ConversationID,
		Role:           "user",
		Content:        userTurn.Content,
		IsFileData:     userTurn.IsFileContent,
	}
	if reply.MaskedContentUser != "" {
		masked := reply.MaskedContentUser
		userMsg.MaskedContent = &masked
		if pii, err := json.Marshal(reply.IdentifiedPII); err == nil {
			s := string(pii)
			userMsg.PIIIdentified = &s
		}
		if toks, err := json.Marshal(reply.IdentifiedTokens); err == nil {
			s := string(toks)
			userMsg.TokensIdentified = &s
		}
	}
	if err := h.History.CreateMessage(ctx, userMsg); err != nil {
		log.Printf("[HistoryGenerate] persist user message failed: %v", err)
		return
	}

	assistantMsg := &history.Message{
		ConversationID: req.ConversationID,
		Role:           "assistant",
		Content:        reply.Content,
		MaskedContent:  reply.MaskedContentAssistant,
	}
	if err := h.History.CreateMessage(ctx, assistantMsg); err != nil {
		log.Printf("[HistoryGenerate] persist assistant message failed: %v", err)
	}
}
