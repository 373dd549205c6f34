package attendance

import (
	"context"
	"errors"
	"sync"
	"time"

	"geoabsensi/internal/models"
)

// ── fakes ──

type fakeLogStore struct {
	mu        sync.Mutex
	logs      []models.LogEntry
	nextID    int64
	createErr error
	findErr   error
	creates   int
}

func (s *fakeLogStore) Create(_ context.Context, in NewLog) (models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return models.LogEntry{}, s.createErr
	}
	s.nextID++
	e := models.LogEntry{
		ID:          s.nextID,
		UserID:      in.UserID,
		LocationID:  in.LocationID,
		Type:        in.Type,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Timestamp:   in.Timestamp,
		PhotoBase64: in.PhotoBase64,
		CreatedAt:   in.Timestamp,
	}
	s.logs = append(s.logs, e)
	return e, nil
}

func (s *fakeLogStore) FindByUserForDay(_ context.Context, userID int64, dayStart, dayEnd time.Time) ([]models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []models.LogEntry
	for _, l := range s.logs {
		if l.UserID == userID && !l.Timestamp.Before(dayStart) && !l.Timestamp.After(dayEnd) {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeLocationStore struct {
	locs []models.Location
	err  error
}

func (s *fakeLocationStore) FindActiveForOwner(_ context.Context, ownerType string, ownerID int64) ([]models.Location, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Location
	for _, l := range s.locs {
		if l.OwnerType == ownerType && l.OwnerID == ownerID && l.IsActive {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeGuard struct {
	held       map[string]bool
	acquireErr error
	released   int
}

func newFakeGuard() *fakeGuard { return &fakeGuard{held: map[string]bool{}} }

func (g *fakeGuard) Acquire(_ context.Context, userID int64, logType string, now time.Time, _ time.Duration) (bool, error) {
	if g.acquireErr != nil {
		return false, g.acquireErr
	}
	k := dedupKey(userID, logType, now)
	if g.held[k] {
		return false, nil
	}
	g.held[k] = true
	return true, nil
}

func (g *fakeGuard) Release(_ context.Context, userID int64, logType string, now time.Time) error {
	g.released++
	delete(g.held, dedupKey(userID, logType, now))
	return nil
}

// fakeClock can be moved forward between calls.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errBoom = errors.New("connection reset")
