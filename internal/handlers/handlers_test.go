package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"busticket/internal/auth"
	"busticket/internal/booking"
	"busticket/internal/handlers"
	"busticket/internal/password"
	"busticket/internal/storage/storagetest"
	"busticket/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := storagetest.New(t)
	log := zap.NewNop()
	tokens := auth.NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	hub := ws.NewHub(log)

	h := handlers.New(handlers.Deps{
		Auth:    auth.NewService(gw, password.NewBcrypt(bcrypt.MinCost), tokens, log),
		Booking: booking.NewService(gw, nil, hub, log),
		Tokens:  tokens,
		Hub:     hub,
		DB:      gw,
		Log:     log,
	})

	r := gin.New()
	r.Use(handlers.RequestID())
	h.Mount(r)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLivenessWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers.New(handlers.Deps{}).Mount(r)

	w := doJSON(r, http.MethodGet, "/", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Bus ticket management system is running"}`, w.Body.String())
}

func TestSignupScenario(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/auth/signup",
		map[string]string{"username": "alice", "email": "a@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"username":"alice","email":"a@x.com"}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/auth/signup",
		map[string]string{"username": "alice", "email": "a@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"email already registered"}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/auth/signup",
		map[string]string{"username": "alice", "email": "other@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"username already taken"}`, w.Body.String())
}

func TestSignupValidation(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"missing email", map[string]string{"username": "alice", "password": "secret1"}, "email"},
		{"invalid email", map[string]string{"username": "alice", "email": "not-an-email", "password": "secret1"}, "email"},
		{"short password", map[string]string{"username": "alice", "email": "a@x.com", "password": "123"}, "password"},
		{"missing username", map[string]string{"email": "a@x.com", "password": "secret1"}, "username"},
		{"malformed json", `{"username":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/auth/signup", tt.body, "")
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var body struct {
				Detail string `json:"detail"`
				Errors []struct {
					Field string `json:"field"`
				} `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Detail)
			if tt.field != "" {
				require.NotEmpty(t, body.Errors)
				assert.Equal(t, tt.field, body.Errors[0].Field)
			}
		})
	}
}

func TestLoginRefreshAndMe(t *testing.T) {
	r := setupRouter(t)
	doJSON(r, http.MethodPost, "/auth/signup",
		map[string]string{"username": "alice", "email": "a@x.com", "password": "secret1"}, "")

	w := doJSON(r, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))

	w = doJSON(r, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": tokens.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": "garbage"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/auth/me", nil, tokens.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"username":"alice","email":"a@x.com"}`, w.Body.String())
}

func login(t *testing.T, r http.Handler, username, email string) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/auth/signup",
		map[string]string{"username": username, "email": email, "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	return tokens.AccessToken
}

type ticketBody struct {
	ID            uint   `json:"id"`
	Status        string `json:"status"`
	TravelDate    string `json:"travel_date"`
	Complete      bool   `json:"complete"`
	QueuePosition int    `json:"queue_position"`
}

func TestBookTicketValidationUsesJSONFieldNames(t *testing.T) {
	r := setupRouter(t)
	alice := login(t, r, "alice", "a@x.com")

	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{
			name: "missing bus id",
			body: map[string]interface{}{"departure": "A", "destination": "B", "travel_date": "2030-01-01"},
			want: `{"detail":"validation failed","errors":[{"field":"bus_id","error":"is required"}]}`,
		},
		{
			name: "missing travel date",
			body: map[string]interface{}{"bus_id": 1, "departure": "A", "destination": "B"},
			want: `{"detail":"validation failed","errors":[{"field":"travel_date","error":"is required"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/tickets", tt.body, alice)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestBookingFlow(t *testing.T) {
	r := setupRouter(t)
	alice := login(t, r, "alice", "a@x.com")
	bob := login(t, r, "bob", "b@x.com")
	date := time.Now().UTC().AddDate(0, 0, 3).Format(time.DateOnly)

	w := doJSON(r, http.MethodPost, "/buses", map[string]interface{}{"name": "Express", "route": "A - B", "capacity": 1}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/buses", map[string]interface{}{"name": "Express", "route": "A - B", "capacity": 0}, alice)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(r, http.MethodPost, "/buses", map[string]interface{}{"name": "Express", "route": "A - B", "capacity": 1}, alice)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"Express","route":"A - B","capacity":1}`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/buses", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Express","route":"A - B","capacity":1}]`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/buses/7", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	book := func(token string) ticketBody {
		w := doJSON(r, http.MethodPost, "/tickets", map[string]interface{}{
			"bus_id": 1, "departure": "A", "destination": "B", "travel_date": date,
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var tk ticketBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tk))
		return tk
	}

	first := book(alice)
	assert.Equal(t, "Confirmed", first.Status)
	assert.Equal(t, date, first.TravelDate)

	second := book(bob)
	assert.Equal(t, "Waiting", second.Status)
	assert.Equal(t, 1, second.QueuePosition)

	w = doJSON(r, http.MethodGet, "/buses/1/queue?date="+date, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var queue []struct {
		Position int  `json:"position"`
		TicketID uint `json:"ticket_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].TicketID)

	w = doJSON(r, http.MethodGet, "/buses/1/queue?date=tomorrow", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(r, http.MethodPost, "/tickets/1/cancel", nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code, "bob cannot cancel alice's ticket")

	w = doJSON(r, http.MethodPost, "/tickets/1/cancel", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/tickets/1/cancel", nil, alice)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodGet, "/tickets", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	var bobs []ticketBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bobs))
	require.Len(t, bobs, 1)
	assert.Equal(t, "Confirmed", bobs[0].Status, "waiting ticket promoted")

	w = doJSON(r, http.MethodPost, "/tickets/2/complete", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/history", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	var history []struct {
		Departure  string `json:"departure"`
		TravelDate string `json:"travel_date"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, date, history[0].TravelDate)

	w = doJSON(r, http.MethodGet, "/history", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		deps   handlers.Deps
		status int
		checks map[string]string
	}{
		{
			name:   "healthy",
			deps:   handlers.Deps{DB: pinger{}, Cache: pinger{}},
			status: http.StatusOK,
			checks: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name:   "redis down",
			deps:   handlers.Deps{DB: pinger{}, Cache: pinger{err: errors.New("refused")}},
			status: http.StatusOK,
			checks: map[string]string{"database": "ok", "redis": "unreachable"},
		},
		{
			name:   "database down",
			deps:   handlers.Deps{DB: pinger{err: errors.New("refused")}},
			status: http.StatusServiceUnavailable,
			checks: map[string]string{"database": "unreachable", "redis": "disabled"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			handlers.New(tt.deps).Mount(r)

			w := doJSON(r, http.MethodGet, "/healthz", nil, "")
			assert.Equal(t, tt.status, w.Code)

			var body struct {
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.checks, body.Checks)
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, http.MethodGet, "/", nil, "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
