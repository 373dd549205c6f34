// Package attendance turns a raw check-in request into a stored log entry:
// input validation, the duplicate window, office auto-detection and the
// UTC+7 timestamp all live here. Storage is injected.
package attendance

import (
	"context"
	"fmt"
	"time"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/geo"
	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

// DuplicateWindow is how long a same-type log blocks another one.
const DuplicateWindow = 5 * time.Minute

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var SystemClock Clock = ClockFunc(time.Now)

// NewLog is what the policy hands to the store once everything is decided.
type NewLog struct {
	UserID      int64
	LocationID  *int64
	Type        string
	Latitude    float64
	Longitude   float64
	Timestamp   time.Time
	PhotoBase64 *string
}

type LogStore interface {
	Create(ctx context.Context, in NewLog) (models.LogEntry, error)
	FindByUserForDay(ctx context.Context, userID int64, dayStart, dayEnd time.Time) ([]models.LogEntry, error)
}

type LocationStore interface {
	FindActiveForOwner(ctx context.Context, ownerType string, ownerID int64) ([]models.Location, error)
}

// WindowGuard is an optional exclusive lock on (user, type) for the
// duplicate window, closing the gap the read-then-write check leaves open.
// It follows the same rules as the read-check: the window is measured from
// now and never reaches into another business day.
type WindowGuard interface {
	Acquire(ctx context.Context, userID int64, logType string, now time.Time, window time.Duration) (bool, error)
	Release(ctx context.Context, userID int64, logType string, now time.Time) error
}

// Owner is whose locations a user may be attributed to: their own, plus
// their company's when they belong to one.
type Owner struct {
	UserID    int64
	CompanyID *int64
}

type CreateLogRequest struct {
	Type       string
	Latitude   float64
	Longitude  float64
	LocationID  *int64
	PhotoBase64 *string
}

type ProximityCheck struct {
	Within            *geo.ProximityVerdict
	Nearest           *geo.ProximityVerdict
	WithinOfficeHours bool
}

type Policy struct {
	Logs      LogStore
	Locations LocationStore
	Clock     Clock
	Guard     WindowGuard // nil = read-check only
}

func NewPolicy(logs LogStore, locations LocationStore, clock Clock, guard WindowGuard) *Policy {
	if clock == nil {
		clock = SystemClock
	}
	return &Policy{Logs: logs, Locations: locations, Clock: clock, Guard: guard}
}

func (p *Policy) CreateLog(ctx context.Context, userID int64, req CreateLogRequest, owner Owner) (models.LogEntry, error) {
	if req.Type != models.LogIn && req.Type != models.LogOut {
		return models.LogEntry{}, fmt.Errorf("%w: type must be %q or %q", apperr.ErrInvalidInput, models.LogIn, models.LogOut)
	}
	if !geo.ValidCoordinates(req.Latitude, req.Longitude) {
		return models.LogEntry{}, fmt.Errorf("%w: latitude must be within [-90,90] and longitude within [-180,180]", apperr.ErrInvalidInput)
	}

	now := util.BusinessTime(p.Clock.Now())

	dayStart, dayEnd := util.BusinessDay(now)
	today, err := p.Logs.FindByUserForDay(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("%w: load today's logs: %w", apperr.ErrStoreFailure, err)
	}
	if recentSameType(today, req.Type, now) {
		return models.LogEntry{}, fmt.Errorf("%w: recent %s log already exists", apperr.ErrDuplicateLog, req.Type)
	}

	if p.Guard != nil {
		ok, err := p.Guard.Acquire(ctx, userID, req.Type, now, DuplicateWindow)
		if err != nil {
			return models.LogEntry{}, fmt.Errorf("%w: duplicate guard: %w", apperr.ErrStoreFailure, err)
		}
		if !ok {
			return models.LogEntry{}, fmt.Errorf("%w: recent %s log already exists", apperr.ErrDuplicateLog, req.Type)
		}
	}

	entry, err := p.resolveAndCreate(ctx, userID, req, owner, now)
	if err != nil && p.Guard != nil {
		// lepas kunci supaya user bisa coba lagi
		_ = p.Guard.Release(context.WithoutCancel(ctx), userID, req.Type, now)
	}
	return entry, err
}

func (p *Policy) resolveAndCreate(ctx context.Context, userID int64, req CreateLogRequest, owner Owner, now time.Time) (models.LogEntry, error) {
	locationID := req.LocationID
	if locationID == nil {
		candidates, err := p.candidates(ctx, owner)
		if err != nil {
			return models.LogEntry{}, err
		}
		point := geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
		if v, ok := geo.ResolveWithinThreshold(point, candidates); ok {
			id := v.Location.ID
			locationID = &id
		}
	}

	entry, err := p.Logs.Create(ctx, NewLog{
		UserID:      userID,
		LocationID:  locationID,
		Type:        req.Type,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Timestamp:   now,
		PhotoBase64: req.PhotoBase64,
	})
	if err != nil {
		return models.LogEntry{}, storeErr("create log", err)
	}
	return entry, nil
}

// CheckProximity reports the best in-radius match and the nearest active
// location without writing anything.
func (p *Policy) CheckProximity(ctx context.Context, owner Owner, lat, lon float64) (ProximityCheck, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return ProximityCheck{}, fmt.Errorf("%w: latitude must be within [-90,90] and longitude within [-180,180]", apperr.ErrInvalidInput)
	}
	candidates, err := p.candidates(ctx, owner)
	if err != nil {
		return ProximityCheck{}, err
	}

	point := geo.Coordinate{Latitude: lat, Longitude: lon}
	var out ProximityCheck
	if v, ok := geo.ResolveWithinThreshold(point, candidates); ok {
		out.Within = &v
	}
	if v, ok := geo.ResolveNearestAny(point, candidates); ok {
		out.Nearest = &v
	}

	out.WithinOfficeHours = true
	if ref := out.Reported(); ref != nil {
		out.WithinOfficeHours = geo.WithinOfficeHours(
			ref.Location.OfficeHoursStart, ref.Location.OfficeHoursEnd, util.NowHHMM(p.Clock.Now()))
	}
	return out, nil
}

// Reported is the verdict shown to the caller: the in-radius match when
// there is one, otherwise the nearest location.
func (c ProximityCheck) Reported() *geo.ProximityVerdict {
	if c.Within != nil {
		return c.Within
	}
	return c.Nearest
}

func (p *Policy) candidates(ctx context.Context, owner Owner) ([]models.Location, error) {
	locs, err := p.Locations.FindActiveForOwner(ctx, models.OwnerUser, owner.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: load user locations: %w", apperr.ErrStoreFailure, err)
	}
	if owner.CompanyID != nil {
		companyLocs, err := p.Locations.FindActiveForOwner(ctx, models.OwnerCompany, *owner.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("%w: load company locations: %w", apperr.ErrStoreFailure, err)
		}
		locs = append(locs, companyLocs...)
	}
	return locs, nil
}

func recentSameType(logs []models.LogEntry, logType string, now time.Time) bool {
	cutoff := now.Add(-DuplicateWindow)
	for _, l := range logs {
		if l.Type == logType && l.Timestamp.After(cutoff) {
			return true
		}
	}
	return false
}

// storeErr keeps business kinds the store already reported (a unique index
// hit is still a duplicate) and tags everything else as a store failure.
func storeErr(op string, err error) error {
	if apperr.Known(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", apperr.ErrStoreFailure, op, err)
}
