package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"geoabsensi/internal/attendance"
	"geoabsensi/internal/http/middleware"
	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

// 2025-01-15 09:00 UTC+7
var testNow = time.Date(2025, 1, 15, 2, 0, 0, 0, time.UTC)

type testEnv struct {
	users     *memUsers
	refresh   *memRefresh
	companies *memCompanies
	locations *memLocations
	logs      *memLogs
	tokens    *util.TokenService
	now       time.Time
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:     newMemUsers(),
		refresh:   newMemRefresh(),
		companies: newMemCompanies(),
		locations: newMemLocations(),
		tokens:    util.NewTokenService("test-secret-0123456789", time.Hour),
		now:       testNow,
	}
	env.logs = &memLogs{users: env.users}
	env.locations.logs = env.logs
	log := zap.NewNop()

	clock := attendance.ClockFunc(func() time.Time { return env.now })
	policy := attendance.NewPolicy(env.logs, env.locations, clock, nil)

	uh := &AuthHandler{Users: env.users, Refresh: env.refresh, Companies: env.companies,
		Tokens: env.tokens, RefreshTTL: 24 * time.Hour, Log: log}
	ch := &CompanyHandler{Companies: env.companies, Users: env.users, Logs: env.logs, Log: log}
	lh := &LocationHandler{Locations: env.locations, Users: env.users, Logs: env.logs, Log: log}
	ah := &AttendanceHandler{Policy: policy, Logs: env.logs, Users: env.users, Locations: env.locations, Log: log}
	hh := &HealthHandler{DB: stubPinger{}, Log: log}

	mux := http.NewServeMux()
	auth := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(env.tokens, h) }

	mux.HandleFunc("GET /health", hh.Check)
	mux.HandleFunc("POST /auth/register", uh.Register)
	mux.HandleFunc("POST /auth/login", uh.Login)
	mux.HandleFunc("POST /auth/refresh", uh.RefreshToken)
	mux.HandleFunc("POST /auth/logout", uh.Logout)
	mux.Handle("GET /auth/me", auth(uh.Me))
	mux.Handle("POST /auth/assign-company", auth(uh.AssignCompany))

	mux.Handle("GET /companies", auth(ch.List))
	mux.Handle("POST /companies", auth(ch.Create))
	mux.Handle("GET /companies/{id}", auth(ch.Get))
	mux.Handle("PUT /companies/{id}", auth(ch.Update))
	mux.Handle("DELETE /companies/{id}", auth(ch.Delete))
	mux.Handle("GET /companies/{id}/logs", auth(ch.ListLogs))

	mux.Handle("GET /locations", auth(lh.List))
	mux.Handle("POST /locations", auth(lh.Create))
	mux.Handle("GET /locations/{id}", auth(lh.Get))
	mux.Handle("PUT /locations/{id}", auth(lh.Update))
	mux.Handle("DELETE /locations/{id}", auth(lh.Delete))
	mux.Handle("PATCH /locations/{id}/toggle", auth(lh.Toggle))
	mux.Handle("GET /locations/{id}/logs", auth(lh.ListLogs))

	mux.Handle("POST /attendance", auth(ah.Create))
	mux.Handle("GET /attendance", auth(ah.List))
	mux.Handle("GET /attendance/today", auth(ah.Today))
	mux.Handle("GET /attendance/marks", auth(ah.Marks))
	mux.Handle("GET /attendance/export", auth(ah.Export))
	mux.Handle("POST /attendance/proximity", auth(ah.Proximity))

	env.handler = middleware.RequestID(mux)
	return env
}

// seedUser stores a user directly and returns a bearer token for it.
func (e *testEnv) seedUser(t *testing.T, username string, companyID *int64) (models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := e.users.Create(context.Background(), username, string(hash), companyID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	tok, _, err := e.tokens.SignAccessToken(util.Identity{UserID: u.ID, Username: u.Username, CompanyID: companyID})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return u, tok
}

func (e *testEnv) seedLocation(t *testing.T, l models.Location) models.Location {
	t.Helper()
	if l.ProximityThreshold == 0 {
		l.ProximityThreshold = 100
	}
	out, err := e.locations.Create(context.Background(), l)
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return out
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

type errBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if got := decodeBody[errBody](t, rec).Error.Code; got != code {
		t.Errorf("expected error code %q, got %q", code, got)
	}
}
