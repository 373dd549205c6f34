// api/[...path].go
package handler

import (
	"net/http"
	"strings"
	"sync"

	"geoabsensi/app"
)

var (
	once    sync.Once
	srv     *app.Server
	initErr error
)

func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		srv, initErr = app.NewFromEnv()
	})
	if initErr != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	h := srv.Handler
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		http.StripPrefix("/api", h).ServeHTTP(w, r)
		return
	}
	h.ServeHTTP(w, r)
}
