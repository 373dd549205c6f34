package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/attendance"
	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
	"geoabsensi/internal/util/imgutil"
)

type AttendanceHandler struct {
	Policy    *attendance.Policy
	Logs      LogReader
	Users     UserStore
	Locations LocationStore
	Log       *zap.Logger
}

type createLogReq struct {
	Type        string   `json:"type" validate:"required"`
	Latitude    *float64 `json:"latitude" validate:"required"`
	Longitude   *float64 `json:"longitude" validate:"required"`
	LocationID  *int64   `json:"locationId" validate:"omitempty,gte=0"`
	Timestamp   *string  `json:"timestamp" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	PhotoBase64 *string  `json:"photoBase64"`
}

type proximityReq struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type proximityResp struct {
	Location          *models.Location `json:"location"`
	Distance          *float64         `json:"distance"`
	IsWithinThreshold bool             `json:"isWithinThreshold"`
	DistanceOutside   *float64         `json:"distanceOutside,omitempty"`
	OfficeHours       *string          `json:"officeHours"`
	WithinOfficeHours bool             `json:"withinOfficeHours"`
	Message           string           `json:"message,omitempty"`
}

// owner resolves the caller's current company from the store; the token's
// copy may predate an assign-company call.
func (h *AttendanceHandler) owner(ctx context.Context, id util.Identity) (attendance.Owner, error) {
	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return attendance.Owner{}, fmt.Errorf("%w: user no longer exists", apperr.ErrUnauthorized)
		}
		return attendance.Owner{}, err
	}
	return attendance.Owner{UserID: u.ID, CompanyID: u.CompanyID}, nil
}

// POST /attendance
func (h *AttendanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}

	var req createLogReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	in := attendance.CreateLogRequest{
		Type:       strings.TrimSpace(req.Type),
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		LocationID: req.LocationID,
	}
	// locationId 0 sama dengan tidak diisi
	if in.LocationID != nil && *in.LocationID == 0 {
		in.LocationID = nil
	}
	if req.PhotoBase64 != nil && strings.TrimSpace(*req.PhotoBase64) != "" {
		norm, err := imgutil.NormalizeBase64(*req.PhotoBase64)
		if err != nil {
			writeError(w, r, h.Log, fmt.Errorf("%w: invalid photo: %v", apperr.ErrInvalidInput, err))
			return
		}
		in.PhotoBase64 = &norm
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	owner, err := h.owner(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	entry, err := h.Policy.CreateLog(ctx, id.UserID, in, owner)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// GET /attendance
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	logs, err := h.Logs.FindByUser(ctx, id.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// GET /attendance/today
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	start, end := util.BusinessDay(h.Policy.Clock.Now())
	logs, err := h.Logs.FindByUserForDay(ctx, id.UserID, start, end)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// POST /attendance/proximity
func (h *AttendanceHandler) Proximity(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}

	var req proximityReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	owner, err := h.owner(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	check, err := h.Policy.CheckProximity(ctx, owner, *req.Latitude, *req.Longitude)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProximityResp(check))
}

func toProximityResp(c attendance.ProximityCheck) proximityResp {
	v := c.Reported()
	if v == nil {
		return proximityResp{
			IsWithinThreshold: false,
			WithinOfficeHours: c.WithinOfficeHours,
			Message:           "no nearby location",
		}
	}

	loc := v.Location
	dist := round1(v.DistanceMeters)
	resp := proximityResp{
		Location:          &loc,
		Distance:          &dist,
		IsWithinThreshold: v.IsWithinThreshold,
		OfficeHours:       officeHours(loc),
		WithinOfficeHours: c.WithinOfficeHours,
	}
	if !v.IsWithinThreshold {
		outside := round1(v.DistanceOutside())
		resp.DistanceOutside = &outside
		resp.Message = fmt.Sprintf("outside by %d meters", int(math.Round(outside)))
	}
	return resp
}

func officeHours(l models.Location) *string {
	if l.OfficeHoursStart == nil || l.OfficeHoursEnd == nil {
		return nil
	}
	s := *l.OfficeHoursStart + " - " + *l.OfficeHoursEnd
	return &s
}
