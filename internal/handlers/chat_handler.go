// File: internal/handlers/chat_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatreveal/internal/domain"
	"github.com/iyunix/go-chatreveal/internal/logger"
	"github.com/iyunix/go-chatreveal/internal/middleware"
	"github.com/iyunix/go-chatreveal/internal/repository"
	"github.com/iyunix/go-chatreveal/internal/services/chat"
)

const (
	errMissingFields = "chat_id and message are required"
	errChatNotFound  = "Chat not found"
	errBodyTooLarge  = "request body too large"

	// JSON escaping can grow a message well past its stored size.
	maxSendBodyBytes = 256 << 10
)

type ChatHandler struct {
	Chats    chat.Manager
	Sender   chat.Sender
	Renderer *Renderer
	Logger   logger.Logger
}

func NewChatHandler(chats chat.Manager, sender chat.Sender, log logger.Logger) (*ChatHandler, error) {
	if chats == nil || sender == nil {
		return nil, errors.New("chat handler requires a chat manager and a sender")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatHandler{
		Chats:    chats,
		Sender:   sender,
		Renderer: NewRenderer(),
		Logger:   log,
	}, nil
}

// GetUserChats lists the caller's chats, newest first.
func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Chats.ListChats(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		h.Logger.Error("list chats failed", "error", err)
		writeError(w, "Could not retrieve chats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

type chatRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	created, err := h.Chats.CreateChat(r.Context(), middleware.UserIDFrom(r.Context()), req.Title)
	if err != nil {
		h.writeChatError(w, err, "Could not create chat")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDVar(r)
	if !ok {
		writeError(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Chats.RenameChat(r.Context(), chatID, req.Title); err != nil {
		h.writeChatError(w, err, "Could not rename chat")
		return
	}
	updated, err := h.Chats.GetChat(r.Context(), chatID)
	if err != nil {
		h.writeChatError(w, err, "Could not rename chat")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDVar(r)
	if !ok {
		writeError(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}
	if err := h.Chats.DeleteChat(r.Context(), chatID); err != nil {
		h.writeChatError(w, err, "Could not delete chat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetChatMessages returns a chat's messages oldest first. With ?render=html
// each message also carries its markdown rendered to HTML.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDVar(r)
	if !ok {
		writeError(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	messages, err := h.Chats.GetMessages(r.Context(), chatID)
	if err != nil {
		h.writeChatError(w, err, "Could not retrieve messages")
		return
	}

	renderHTML := r.URL.Query().Get("render") == "html"
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		view := MessageView{Message: m}
		if renderHTML {
			if rendered, err := h.Renderer.Render(m.Text); err == nil {
				view.HTML = rendered
			} else {
				h.Logger.Warn("markdown render failed", "message_id", m.ID, "error", err)
			}
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

type sendRequest struct {
	ChatID  uint   `json:"chat_id"`
	Message string `json:"message"`
}

// HandleChatMessage sends a user message. It answers with JSON by default and
// streams the reply as plain text for ?stream=1 or Accept: text/plain.
func (h *ChatHandler) HandleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSendBodyBytes)).Decode(&req)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, errBodyTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil || req.ChatID == 0 || strings.TrimSpace(req.Message) == "" {
		writeError(w, errMissingFields, http.StatusBadRequest)
		return
	}

	send := chat.SendRequest{ChatID: req.ChatID, Text: req.Message, Role: domain.RoleUser}
	if wantsStream(r) {
		h.streamReply(w, r, send)
		return
	}

	messages, err := h.Sender.SendMessage(r.Context(), send)
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type sendResult struct {
	messages []domain.Message
	err      error
}

// streamReply writes only the newly revealed part of the reply on each
// emission, so the body received so far is always a prefix of it.
func (h *ChatHandler) streamReply(w http.ResponseWriter, r *http.Request, send chat.SendRequest) {
	flusher, _ := w.(http.Flusher)
	reveal := chat.NewReveal()
	send.Reveal = reveal

	done := make(chan sendResult, 1)
	go func() {
		messages, err := h.Sender.SendMessage(r.Context(), send)
		done <- sendResult{messages: messages, err: err}
	}()

	started := false
	streamErr := reveal.Deltas(r.Context(), func(delta string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, delta); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if streamErr != nil {
		h.Logger.Debug("reply stream ended early", "chat_id", send.ChatID, "error", streamErr)
	}

	res := <-done
	if res.err != nil {
		if !started {
			h.writeSendError(w, res.err)
			return
		}
		h.Logger.Error("send failed after reveal started", "chat_id", send.ChatID, "error", res.err)
	}
}

func wantsStream(r *http.Request) bool {
	if v := r.URL.Query().Get("stream"); v == "1" || v == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/plain")
}

func (h *ChatHandler) writeSendError(w http.ResponseWriter, err error) {
	var ce *chat.ChatError
	var se *repository.StoreError
	switch {
	case errors.As(err, &ce) && ce.Type == chat.ErrTypeValidation:
		writeError(w, ce.Message, http.StatusBadRequest)
	case errors.As(err, &se) && se.Kind == repository.KindValidation && se.Cause != nil:
		writeError(w, se.Cause.Error(), http.StatusBadRequest)
	case repository.IsNotFound(err):
		writeError(w, errChatNotFound, http.StatusNotFound)
	default:
		h.Logger.Error("send message failed", "error", err)
		writeError(w, chat.ServerErrorText, http.StatusInternalServerError)
	}
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, err error, fallback string) {
	var ce *chat.ChatError
	var se *repository.StoreError
	switch {
	case repository.IsNotFound(err):
		writeError(w, errChatNotFound, http.StatusNotFound)
	case errors.As(err, &ce) && ce.Type == chat.ErrTypeValidation:
		writeError(w, ce.Message, http.StatusBadRequest)
	case errors.As(err, &se) && se.Kind == repository.KindValidation && se.Cause != nil:
		writeError(w, se.Cause.Error(), http.StatusBadRequest)
	default:
		h.Logger.Error(fallback, "error", err)
		writeError(w, fallback, http.StatusInternalServerError)
	}
}
