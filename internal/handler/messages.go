package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/common-ground/internal/session"
)

// MessageHandler serves the inbox and the conversations in it.
type MessageHandler struct {
	session *session.Session
	logger  *slog.Logger
}

func NewMessageHandler(s *session.Session, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{session: s, logger: logger}
}

// ReadResponse reports how many messages a read call flipped.
type ReadResponse struct {
	Changed int `json:"changed"`
}

// HandleThreads returns one thread per counterpart, newest first.
//
// HTTP: GET /api/threads
func (h *MessageHandler) HandleThreads(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	threads := h.session.Threads(userID)
	for i := range threads {
		if threads[i].Counterpart != nil {
			c := *threads[i].Counterpart
			c.Email = ""
			threads[i].Counterpart = &c
		}
	}
	writeJSON(w, http.StatusOK, threads)
}

// HandleConversation returns every message exchanged with one counterpart,
// oldest first. Reading it does not mark anything read; the client calls
// HandleReadConversation for that.
//
// HTTP: GET /api/threads/{userId}
func (h *MessageHandler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.session.Conversation(userID, chi.URLParam(r, "userId")))
}

// HandleSend posts a message to the counterpart.
//
// HTTP: POST /api/threads/{userId}/messages
// REQUEST BODY: {"content": "..."}
// RESPONSE: 201 with the message, or 204 when the content was blank
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.session.SendMessage(r.Context(), userID, chi.URLParam(r, "userId"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// HandleReadConversation marks everything the counterpart sent as read.
//
// HTTP: POST /api/threads/{userId}/read
func (h *MessageHandler) HandleReadConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.session.MarkConversationRead(r.Context(), userID, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadResponse{Changed: n})
}

// HandleMarkRead marks specific messages read. IDs of messages that were
// not sent to the caller are ignored.
//
// HTTP: POST /api/messages/read
// REQUEST BODY: {"ids": ["...", "..."]}
func (h *MessageHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	n, err := h.session.MarkRead(r.Context(), userID, req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadResponse{Changed: n})
}
