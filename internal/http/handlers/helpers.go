package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/http/middleware"
	"geoabsensi/internal/util"
)

const reqTimeout = 3 * time.Second

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "HH:MM" 24 jam, wajib zero-padded supaya perbandingan string benar
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 5 {
			return false
		}
		_, err := time.Parse("15:04", s)
		return err == nil
	})
	return v
}

// decode reads a JSON body into dst and runs struct validation.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json", apperr.ErrInvalidInput)
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Errorf("%w: field %s failed %q", apperr.ErrInvalidInput, ve[0].Field(), ve[0].Tag())
		}
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with {"error":{"code","message"}}. Store failures are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": apperr.Code(err), "message": msg},
	})
}

func mustIdentity(w http.ResponseWriter, r *http.Request, log *zap.Logger) (util.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, log, apperr.ErrUnauthorized)
		return util.Identity{}, false
	}
	return id, true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", apperr.ErrInvalidInput, name)
	}
	return id, nil
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
