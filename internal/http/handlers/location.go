package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/geo"
	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

type LocationHandler struct {
	Locations LocationStore
	Users     UserStore
	Logs      LogReader
	Log       *zap.Logger
}

type createLocationReq struct {
	Name               string   `json:"name" validate:"required,max=100"`
	Latitude           *float64 `json:"latitude" validate:"required"`
	Longitude          *float64 `json:"longitude" validate:"required"`
	ProximityThreshold *float64 `json:"proximityThreshold"`
	OfficeHoursStart   *string  `json:"officeHoursStart" validate:"omitempty,hhmm"`
	OfficeHoursEnd     *string  `json:"officeHoursEnd" validate:"omitempty,hhmm"`
	Scope              string   `json:"scope" validate:"omitempty,oneof=user company"`
}

type updateLocationReq struct {
	Name               *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	ProximityThreshold *float64 `json:"proximityThreshold"`
	OfficeHoursStart   *string  `json:"officeHoursStart" validate:"omitempty,hhmm"`
	OfficeHoursEnd     *string  `json:"officeHoursEnd" validate:"omitempty,hhmm"`
}

func checkLocationFields(lat, lon, threshold float64) error {
	if !geo.ValidCoordinates(lat, lon) {
		return fmt.Errorf("%w: latitude must be within [-90,90] and longitude within [-180,180]", apperr.ErrInvalidInput)
	}
	if !(threshold > 0) {
		return fmt.Errorf("%w: proximity threshold must be greater than 0", apperr.ErrInvalidInput)
	}
	return nil
}

func (h *LocationHandler) caller(ctx context.Context, id util.Identity) (models.User, error) {
	u, err := h.Users.GetByID(ctx, id.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, fmt.Errorf("%w: user no longer exists", apperr.ErrUnauthorized)
	}
	return u, err
}

func canAccess(u models.User, l models.Location) bool {
	switch l.OwnerType {
	case models.OwnerUser:
		return l.OwnerID == u.ID
	case models.OwnerCompany:
		return u.CompanyID != nil && *u.CompanyID == l.OwnerID
	}
	return false
}

// load fetches a location the caller may see. Someone else's location is
// reported as not found.
func (h *LocationHandler) load(ctx context.Context, r *http.Request, id util.Identity) (models.Location, error) {
	locID, err := pathID(r, "id")
	if err != nil {
		return models.Location{}, err
	}
	u, err := h.caller(ctx, id)
	if err != nil {
		return models.Location{}, err
	}
	loc, err := h.Locations.GetByID(ctx, locID)
	if err != nil {
		return models.Location{}, err
	}
	if !canAccess(u, loc) {
		return models.Location{}, fmt.Errorf("%w: location %d", apperr.ErrNotFound, locID)
	}
	return loc, nil
}

// POST /locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	var req createLocationReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	threshold := models.DefaultProximityThreshold
	if req.ProximityThreshold != nil {
		threshold = *req.ProximityThreshold
	}
	if err := checkLocationFields(*req.Latitude, *req.Longitude, threshold); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	loc := models.Location{
		OwnerType:          models.OwnerUser,
		OwnerID:            id.UserID,
		Name:               strings.TrimSpace(req.Name),
		Latitude:           *req.Latitude,
		Longitude:          *req.Longitude,
		ProximityThreshold: threshold,
		OfficeHoursStart:   req.OfficeHoursStart,
		OfficeHoursEnd:     req.OfficeHoursEnd,
	}
	if req.Scope == models.OwnerCompany {
		u, err := h.caller(ctx, id)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		if u.CompanyID == nil {
			writeError(w, r, h.Log, fmt.Errorf("%w: user has no company", apperr.ErrInvalidInput))
			return
		}
		loc.OwnerType = models.OwnerCompany
		loc.OwnerID = *u.CompanyID
	}

	created, err := h.Locations.Create(ctx, loc)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GET /locations?includeInactive=true
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	u, err := h.caller(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Locations.ListByOwner(ctx, models.OwnerUser, u.ID, includeInactive)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if u.CompanyID != nil {
		companyLocs, err := h.Locations.ListByOwner(ctx, models.OwnerCompany, *u.CompanyID, includeInactive)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		out = append(out, companyLocs...)
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /locations/{id}
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	loc, err := h.load(ctx, r, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// PUT /locations/{id}  (partial; omitted fields keep their value)
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	var req updateLocationReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	loc, err := h.load(ctx, r, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	if req.Name != nil {
		loc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Latitude != nil {
		loc.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		loc.Longitude = *req.Longitude
	}
	if req.ProximityThreshold != nil {
		loc.ProximityThreshold = *req.ProximityThreshold
	}
	if req.OfficeHoursStart != nil {
		loc.OfficeHoursStart = req.OfficeHoursStart
	}
	if req.OfficeHoursEnd != nil {
		loc.OfficeHoursEnd = req.OfficeHoursEnd
	}
	if err := checkLocationFields(loc.Latitude, loc.Longitude, loc.ProximityThreshold); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	updated, err := h.Locations.Update(ctx, loc)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PATCH /locations/{id}/toggle
func (h *LocationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	loc, err := h.load(ctx, r, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	toggled, err := h.Locations.ToggleActive(ctx, loc.ID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toggled)
}

// DELETE /locations/{id}
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	loc, err := h.load(ctx, r, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	deleted, err := h.Locations.Delete(ctx, loc.ID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

// GET /locations/{id}/logs
func (h *LocationHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	loc, err := h.load(ctx, r, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	logs, err := h.Logs.FindByLocation(ctx, loc.ID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
