package app

import (
	"net/http"

	"geoabsensi/internal/http/router"
)

type HandlerDeps = router.Deps

func NewHandler(d HandlerDeps) http.Handler {
	return router.New(d)
}
