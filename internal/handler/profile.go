package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/service"
	"github.com/sakif/common-ground/internal/session"
)

// ProfileHandler serves the signed-in athlete's own profile and the views
// computed for them: matches and the notification badge.
type ProfileHandler struct {
	session  *session.Session
	accounts *service.AuthService
	logger   *slog.Logger
}

func NewProfileHandler(s *session.Session, accounts *service.AuthService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{session: s, accounts: accounts, logger: logger}
}

// MeResponse is what GET /api/me returns. Profile is null until the
// athlete completes it with PUT /api/me.
type MeResponse struct {
	Account       *model.Account        `json:"account"`
	Profile       *model.User           `json:"profile"`
	Notifications session.Notifications `json:"notifications"`
}

type profileRequest struct {
	Name            string                `json:"name"`
	Avatar          string                `json:"avatar"`
	Location        model.Location        `json:"location"`
	Sports          []model.Sport         `json:"sports"`
	ExperienceLevel model.ExperienceLevel `json:"experienceLevel"`
	Role            model.Role            `json:"role"`
	Bio             string                `json:"bio"`
}

func (p profileRequest) input() session.ProfileInput {
	return session.ProfileInput{
		Name:      p.Name,
		Avatar:    p.Avatar,
		City:      p.Location.City,
		Latitude:  p.Location.Latitude,
		Longitude: p.Location.Longitude,
		Sports:    p.Sports,
		Level:     p.ExperienceLevel,
		Role:      p.Role,
		Bio:       p.Bio,
	}
}

// HandleMe returns the account, the profile if there is one, and the
// notification counts.
//
// HTTP: GET /api/me
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := MeResponse{Account: account, Notifications: h.session.Notifications(userID)}
	if u, err := h.session.User(userID); err == nil {
		resp.Profile = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSaveProfile completes the profile on first call and updates it
// afterwards.
//
// HTTP: PUT /api/me
// RESPONSE: 201 with the new profile, or 200 with the updated one
func (h *ProfileHandler) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.session.User(userID); errors.Is(err, apperror.ErrNotFound) {
		account, err := h.accounts.GetAccount(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		u, err := h.session.CompleteProfile(r.Context(), userID, account.Email, req.input())
		if err == nil {
			writeJSON(w, http.StatusCreated, u)
			return
		}
		// Another request completed the profile first; fall through to update.
		if !errors.Is(err, apperror.ErrConflict) {
			writeError(w, err)
			return
		}
	}

	u, err := h.session.UpdateProfile(r.Context(), userID, userID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleGetUser returns another athlete's public profile.
//
// HTTP: GET /api/users/{id}
func (h *ProfileHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	u, err := h.session.User(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	u.Email = "" // only the owner sees their email
	writeJSON(w, http.StatusOK, u)
}

// HandleMatches lists athletes in the same city who share a sport.
//
// HTTP: GET /api/matches
func (h *ProfileHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	matches, err := h.session.Matches(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range matches {
		matches[i].Email = ""
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleNotifications returns the badge counts.
//
// HTTP: GET /api/notifications
func (h *ProfileHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.session.Notifications(userID))
}
