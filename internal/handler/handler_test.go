package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/common-ground/internal/auth"
	"github.com/sakif/common-ground/internal/handler"
	"github.com/sakif/common-ground/internal/model"
	sqliteRepo "github.com/sakif/common-ground/internal/repository/sqlite"
	"github.com/sakif/common-ground/internal/service"
	"github.com/sakif/common-ground/internal/session"
)

// =========================================================================
// TEST API
// =========================================================================

// testAPI is the real handler stack over an in-memory database, with the
// same routes the server mounts.
type testAPI struct {
	t       *testing.T
	router  http.Handler
	session *session.Session
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	sess := session.New(db, logger)
	accounts := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), logger)

	authH := handler.NewAuthHandler(accounts, tokens, nil, false, logger)
	profiles := handler.NewProfileHandler(sess, accounts, logger)
	connections := handler.NewConnectionHandler(sess, logger)
	messages := handler.NewMessageHandler(sess, logger)
	events := handler.NewEventHandler(sess, logger)

	r := chi.NewRouter()
	r.Post("/auth/register", authH.HandleRegister)
	r.Post("/auth/login", authH.HandleLogin)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/me", profiles.HandleMe)
		r.Put("/me", profiles.HandleSaveProfile)
		r.Get("/users/{id}", profiles.HandleGetUser)
		r.Get("/matches", profiles.HandleMatches)
		r.Get("/notifications", profiles.HandleNotifications)
		r.Get("/connections", connections.HandleList)
		r.Post("/connections", connections.HandleRequest)
		r.Post("/connections/{id}/accept", connections.HandleAccept)
		r.Post("/connections/{id}/reject", connections.HandleReject)
		r.Get("/threads", messages.HandleThreads)
		r.Get("/threads/{userId}", messages.HandleConversation)
		r.Post("/threads/{userId}/messages", messages.HandleSend)
		r.Post("/threads/{userId}/read", messages.HandleReadConversation)
		r.Post("/messages/read", messages.HandleMarkRead)
		r.Get("/events", events.HandleList)
		r.Post("/events", events.HandleCreate)
		r.Get("/events/{id}", events.HandleGet)
		r.Post("/events/{id}/join", events.HandleJoin)
	})

	return &testAPI{t: t, router: r, session: sess}
}

// do sends a request with an optional bearer token and JSON body.
func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

type athlete struct {
	ID    string
	Token string
}

// register signs up a new account and returns its ID and token.
func (a *testAPI) register(email string) athlete {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", fmt.Sprintf(`{"email":%q,"password":"long-enough"}`, email))
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[handler.AuthResponse](a.t, rec)
	return athlete{ID: resp.Account.ID, Token: resp.Token}
}

// athlete registers and completes a profile.
func (a *testAPI) athlete(name, city string, sports ...string) athlete {
	a.t.Helper()
	who := a.register(strings.ToLower(name) + "@example.com")
	body := fmt.Sprintf(`{"name":%q,"location":{"city":%q,"latitude":19.07,"longitude":72.87},"sports":[%s],"experienceLevel":"intermediate","role":"player"}`,
		name, city, `"`+strings.Join(sports, `","`)+`"`)
	rec := a.do(http.MethodPut, "/api/me", who.Token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return who
}

// =========================================================================
// AUTH TESTS
// =========================================================================

func TestAuth_RegisterLoginLogout(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/auth/register", "", `{"email":"asha@example.com","password":"long-enough"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), auth.CookieName+"=")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "HttpOnly")
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = api.do(http.MethodPost, "/auth/register", "", `{"email":"asha@example.com","password":"long-enough"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/auth/login", "", `{"email":"asha@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decode[handler.ErrorResponse](t, rec).Message)

	rec = api.do(http.MethodPost, "/auth/login", "", `{"email":"asha@example.com","password":"long-enough"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[handler.AuthResponse](t, rec).Token)

	rec = api.do(http.MethodPost, "/auth/logout", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestAuth_BadBodies(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty body", "", "body"},
		{"broken JSON", `{"email":`, "body"},
		{"unknown field", `{"email":"a@b.co","password":"long-enough","admin":true}`, "body"},
		{"two objects", `{"email":"a@b.co","password":"long-enough"}{}`, "body"},
		{"bad email", `{"email":"nope","password":"long-enough"}`, "email"},
		{"short password", `{"email":"a@b.co","password":"short"}`, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[handler.ErrorResponse](t, rec)
			assert.Equal(t, "Bad Request", resp.Error)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestAPI_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/me", "/api/matches", "/api/threads", "/api/events"} {
		rec := api.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/me", "not-a-token", "").Code)
}

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestProfile_CompleteThenUpdate(t *testing.T) {
	api := newTestAPI(t)
	who := api.register("asha@example.com")

	me := decode[handler.MeResponse](t, api.do(http.MethodGet, "/api/me", who.Token, ""))
	assert.Equal(t, who.ID, me.Account.ID)
	assert.Nil(t, me.Profile)

	body := `{"name":"Asha","location":{"city":"Mumbai","latitude":19.07,"longitude":72.87},"sports":["cricket"],"experienceLevel":"advanced","role":"coach"}`
	rec := api.do(http.MethodPut, "/api/me", who.Token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.User](t, rec)
	assert.Equal(t, who.ID, created.ID)
	assert.Equal(t, "asha@example.com", created.Email)
	assert.Equal(t, model.RoleCoach, created.Role)

	body = `{"name":"Asha K","location":{"city":"Pune","latitude":18.52,"longitude":73.85},"sports":["cricket","tennis"],"experienceLevel":"advanced","role":"coach"}`
	rec = api.do(http.MethodPut, "/api/me", who.Token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Pune", decode[model.User](t, rec).Location.City)

	me = decode[handler.MeResponse](t, api.do(http.MethodGet, "/api/me", who.Token, ""))
	require.NotNil(t, me.Profile)
	assert.Equal(t, "Asha K", me.Profile.Name)
}

func TestProfile_Validation(t *testing.T) {
	api := newTestAPI(t)
	who := api.register("asha@example.com")

	rec := api.do(http.MethodPut, "/api/me", who.Token,
		`{"name":"Asha","location":{"city":"Mumbai"},"sports":["quidditch"],"experienceLevel":"advanced","role":"player"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sports", decode[handler.ErrorResponse](t, rec).Field)

	rec = api.do(http.MethodGet, "/api/matches", who.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no profile yet")
}

func TestGetUser_HidesEmail(t *testing.T) {
	api := newTestAPI(t)
	a := api.athlete("Asha", "Mumbai", "cricket")
	b := api.athlete("Bilal", "Mumbai", "cricket")

	rec := api.do(http.MethodGet, "/api/users/"+b.ID, a.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	u := decode[model.User](t, rec)
	assert.Equal(t, "Bilal", u.Name)
	assert.Empty(t, u.Email)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/users/nobody", a.Token, "").Code)
}

// =========================================================================
// MATCH AND CONNECTION TESTS
// =========================================================================

func TestMatchesAndConnections(t *testing.T) {
	api := newTestAPI(t)
	a := api.athlete("Asha", "Mumbai", "cricket")
	b := api.athlete("Bilal", "Mumbai", "cricket", "tennis")
	api.athlete("Chitra", "Delhi", "cricket")

	matches := decode[[]model.User](t, api.do(http.MethodGet, "/api/matches", a.Token, ""))
	require.Len(t, matches, 1)
	assert.Equal(t, b.ID, matches[0].ID)
	assert.Empty(t, matches[0].Email)

	rec := api.do(http.MethodPost, "/api/connections", a.Token, fmt.Sprintf(`{"toUserId":%q}`, b.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conn := decode[model.Connection](t, rec)
	assert.Equal(t, model.StatusPending, conn.Status)

	// Reverse direction is the same pair.
	rec = api.do(http.MethodPost, "/api/connections", b.Token, fmt.Sprintf(`{"toUserId":%q}`, a.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)

	notes := decode[session.Notifications](t, api.do(http.MethodGet, "/api/notifications", b.Token, ""))
	assert.Equal(t, 1, notes.PendingRequests)

	// Only the recipient may answer.
	rec = api.do(http.MethodPost, "/api/connections/"+conn.ID+"/accept", a.Token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/connections/"+conn.ID+"/accept", b.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusAccepted, decode[model.Connection](t, rec).Status)

	rec = api.do(http.MethodPost, "/api/connections/"+conn.ID+"/reject", b.Token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/api/connections/missing/accept", b.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	lists := decode[map[string][]model.Connection](t, api.do(http.MethodGet, "/api/connections", a.Token, ""))
	assert.Len(t, lists["accepted"], 1)
}

// =========================================================================
// MESSAGE TESTS
// =========================================================================

func TestMessages(t *testing.T) {
	api := newTestAPI(t)
	a := api.athlete("Asha", "Mumbai", "cricket")
	b := api.athlete("Bilal", "Delhi", "tennis")

	rec := api.do(http.MethodPost, "/api/threads/"+b.ID+"/messages", a.Token, `{"content":"  nets at 6?  "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[model.Message](t, rec)
	assert.Equal(t, "nets at 6?", first.Content)

	rec = api.do(http.MethodPost, "/api/threads/"+b.ID+"/messages", a.Token, `{"content":"   "}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/threads/nobody/messages", a.Token, `{"content":"hello?"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/threads/"+a.ID+"/messages", a.Token, `{"content":"note to self"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	threads := decode[[]model.Thread](t, api.do(http.MethodGet, "/api/threads", b.Token, ""))
	require.Len(t, threads, 1)
	assert.Equal(t, a.ID, threads[0].CounterpartID)
	assert.Equal(t, 1, threads[0].UnreadCount)
	require.NotNil(t, threads[0].Counterpart)
	assert.Empty(t, threads[0].Counterpart.Email)

	// The sender cannot mark the recipient's copy read.
	rec = api.do(http.MethodPost, "/api/messages/read", a.Token, fmt.Sprintf(`{"ids":[%q]}`, first.ID))
	assert.Equal(t, 0, decode[handler.ReadResponse](t, rec).Changed)

	rec = api.do(http.MethodPost, "/api/threads/"+a.ID+"/read", b.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[handler.ReadResponse](t, rec).Changed)

	conversation := decode[[]model.Message](t, api.do(http.MethodGet, "/api/threads/"+a.ID, b.Token, ""))
	require.Len(t, conversation, 1)
	assert.True(t, conversation[0].Read)
}

// =========================================================================
// EVENT TESTS
// =========================================================================

func TestEvents(t *testing.T) {
	api := newTestAPI(t)
	c := api.athlete("Chitra", "Mumbai", "badminton")
	d := api.athlete("Dev", "Mumbai", "badminton")
	e := api.athlete("Esha", "Mumbai", "badminton")

	when := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	rec := api.do(http.MethodPost, "/api/events", c.Token,
		fmt.Sprintf(`{"title":"Doubles","sport":"badminton","scheduledAt":%q,"capacity":2}`, when))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[model.Event](t, rec)
	assert.Equal(t, []string{c.ID}, ev.Participants)
	assert.Equal(t, "Mumbai", ev.Location.Name)

	available := decode[[]model.Event](t, api.do(http.MethodGet, "/api/events?filter=available", d.Token, ""))
	require.Len(t, available, 1)

	rec = api.do(http.MethodPost, "/api/events/"+ev.ID+"/join", d.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{c.ID, d.ID}, decode[model.Event](t, rec).Participants)

	rec = api.do(http.MethodPost, "/api/events/"+ev.ID+"/join", e.Token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, rec).Message, "is full")

	rec = api.do(http.MethodPost, "/api/events/"+ev.ID+"/join", d.Token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	mine := decode[[]model.Event](t, api.do(http.MethodGet, "/api/events?filter=mine", d.Token, ""))
	assert.Len(t, mine, 1)

	assert.Len(t, decode[[]model.Event](t, api.do(http.MethodGet, "/api/events?filter=available", e.Token, "")), 0)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/events?filter=past", e.Token, "").Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/events/"+ev.ID, e.Token, "").Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/events/missing", e.Token, "").Code)
}

func TestCreateEvent_Validation(t *testing.T) {
	api := newTestAPI(t)
	c := api.athlete("Chitra", "Mumbai", "badminton")
	when := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"capacity one", fmt.Sprintf(`{"title":"Solo","sport":"badminton","scheduledAt":%q,"capacity":1}`, when), "capacity"},
		{"past", `{"title":"Yesterday","sport":"badminton","scheduledAt":"2020-01-01T10:00:00Z","capacity":4}`, "scheduledAt"},
		{"bad time format", `{"title":"When","sport":"badminton","scheduledAt":"tomorrow","capacity":4}`, "body"},
		{"bad latitude", fmt.Sprintf(`{"title":"Far","sport":"badminton","scheduledAt":%q,"capacity":4,"location":{"latitude":95}}`, when), "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/events", c.Token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.field, decode[handler.ErrorResponse](t, rec).Field)
		})
	}
}

func TestCreateEvent_ExplicitLocation(t *testing.T) {
	api := newTestAPI(t)
	c := api.athlete("Chitra", "Mumbai", "football")
	when := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	rec := api.do(http.MethodPost, "/api/events", c.Token, fmt.Sprintf(
		`{"title":"Five-a-side","sport":"football","scheduledAt":%q,"capacity":10,"minLevel":"advanced","location":{"name":"Cooperage Ground","latitude":18.92,"longitude":72.83}}`, when))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	ev := decode[model.Event](t, rec)
	assert.Equal(t, model.EventLocation{Name: "Cooperage Ground", Latitude: 18.92, Longitude: 72.83}, ev.Location)
	assert.Equal(t, model.LevelAdvanced, ev.MinLevel)
}
