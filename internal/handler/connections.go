package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/session"
)

type ConnectionHandler struct {
	session *session.Session
	logger  *slog.Logger
}

func NewConnectionHandler(s *session.Session, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{session: s, logger: logger}
}

// HandleList returns the accepted, incoming and outgoing connections.
//
// HTTP: GET /api/connections
func (h *ConnectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.session.Connections(userID))
}

// HandleRequest sends a connection request.
//
// HTTP: POST /api/connections
// REQUEST BODY: {"toUserId": "..."}
// RESPONSE: 201 with the pending connection; 409 if the pair already has one
func (h *ConnectionHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		ToUserID string `json:"toUserId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.session.RequestConnection(r.Context(), userID, req.ToUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

// HandleAccept answers a pending request with yes.
//
// HTTP: POST /api/connections/{id}/accept
func (h *ConnectionHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, model.DecisionAccept)
}

// HandleReject answers a pending request with no. The pair cannot connect
// again afterwards.
//
// HTTP: POST /api/connections/{id}/reject
func (h *ConnectionHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, model.DecisionReject)
}

func (h *ConnectionHandler) respond(w http.ResponseWriter, r *http.Request, d model.Decision) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	conn, err := h.session.Respond(r.Context(), chi.URLParam(r, "id"), userID, d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}
