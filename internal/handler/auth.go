package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/common-ground/internal/auth"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler serves sign-up, sign-in and sign-out.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin → email + password, JSON in and out
//   - HandleGitHubLogin → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, sign the account in, redirect home
//   - HandleLogout → clear the token cookie
//
// Every successful sign-in sets the token as an HttpOnly cookie and, for
// the JSON endpoints, also returns it in the body.
type AuthHandler struct {
	accounts *service.AuthService
	tokens   *auth.TokenService
	github   *auth.GitHubProvider // nil when GitHub login is not configured
	secure   bool                 // mark cookies Secure (HTTPS deployments)
	logger   *slog.Logger
}

func NewAuthHandler(
	accounts *service.AuthService,
	tokens *auth.TokenService,
	github *auth.GitHubProvider,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		github:   github,
		secure:   secureCookies,
		logger:   logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the body of a successful register or login.
type AuthResponse struct {
	Account *model.Account `json:"account"`
	Token   string         `json:"token"`
}

// HandleRegister creates an email + password account and signs it in.
//
// HTTP: POST /auth/register
// REQUEST BODY: {"email": "asha@example.com", "password": "at-least-8"}
// RESPONSE: 201 {"account": {...}, "token": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("registration refused", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, AuthResponse{Account: result.Account, Token: result.Token})
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login
// RESPONSE: 200 {"account": {...}, "token": "..."} or 401
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusOK, AuthResponse{Account: result.Account, Token: result.Token})
}

// HandleLogout clears the token cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so the token itself stays valid until it expires;
// without the cookie the browser just stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin redirects the browser to GitHub.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes both into a short-lived HttpOnly cookie and into
// the redirect. HandleGitHubCallback only proceeds when GitHub echoes back
// the same value, which proves this server started the flow.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the GitHub flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state against the cookie (CSRF)
//  2. Exchange the code for the GitHub profile
//  3. Create, link or refresh the account
//  4. Set the token cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "invalid OAuth state",
		})
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "missing OAuth code",
		})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	result, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	h.setTokenCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setTokenCookie stores the access token where JavaScript cannot read it.
// SameSite=Lax keeps it off cross-site POSTs.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
