package router

import (
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"geoabsensi/internal/attendance"
	"geoabsensi/internal/http/handlers"
	"geoabsensi/internal/http/middleware"
	"geoabsensi/internal/repo"
	"geoabsensi/internal/util"
)

type Deps struct {
	DB         *sql.DB
	Tokens     *util.TokenService
	RefreshTTL time.Duration
	Log        *zap.Logger
	// Guard is nil when redis is not configured.
	Guard *attendance.RedisWindowGuard
	Clock attendance.Clock
}

func New(d Deps) http.Handler {
	users := repo.NewUserRepo(d.DB)
	companies := repo.NewCompanyRepo(d.DB)
	locations := repo.NewLocationRepo(d.DB)
	logs := repo.NewLogRepo(d.DB)

	// interface nil harus benar-benar nil, bukan pointer nil
	var guard attendance.WindowGuard
	var redisPing handlers.Pinger
	if d.Guard != nil {
		guard = d.Guard
		redisPing = d.Guard
	}
	policy := attendance.NewPolicy(logs, locations, d.Clock, guard)

	uh := &handlers.AuthHandler{
		Users:      users,
		Refresh:    repo.NewRefreshRepo(d.DB),
		Companies:  companies,
		Tokens:     d.Tokens,
		RefreshTTL: d.RefreshTTL,
		Log:        d.Log,
	}
	ch := &handlers.CompanyHandler{Companies: companies, Users: users, Logs: logs, Log: d.Log}
	lh := &handlers.LocationHandler{Locations: locations, Users: users, Logs: logs, Log: d.Log}
	ah := &handlers.AttendanceHandler{
		Policy:    policy,
		Logs:      logs,
		Users:     users,
		Locations: locations,
		Log:       d.Log,
	}
	hh := &handlers.HealthHandler{DB: d.DB, Redis: redisPing, Log: d.Log}

	mux := http.NewServeMux()
	auth := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(d.Tokens, h) }

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

	var h http.Handler = mux
	h = middleware.Recover(d.Log, h)
	h = middleware.Logger(d.Log, h)
	h = middleware.RequestID(h)
	return h
}
