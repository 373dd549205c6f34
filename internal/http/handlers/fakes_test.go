package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/attendance"
	"geoabsensi/internal/models"
)

// ── in-memory stores ──

type memUsers struct {
	mu     sync.Mutex
	users  map[int64]models.User
	nextID int64
}

func newMemUsers() *memUsers { return &memUsers{users: map[int64]models.User{}} }

func (s *memUsers) Create(_ context.Context, username, passHash string, companyID *int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return models.User{}, fmt.Errorf("%w: username already exists", apperr.ErrConflict)
		}
	}
	s.nextID++
	u := models.User{ID: s.nextID, Username: username, PasswordHash: passHash, CompanyID: companyID, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u, nil
}

func (s *memUsers) GetByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%w: user %q", apperr.ErrNotFound, username)
}

func (s *memUsers) GetByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	return u, nil
}

func (s *memUsers) AssignCompany(_ context.Context, userID, companyID int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%w: user %d", apperr.ErrNotFound, userID)
	}
	u.CompanyID = &companyID
	s.users[userID] = u
	return u, nil
}

type refreshRec struct {
	userID  int64
	exp     time.Time
	revoked bool
}

type memRefresh struct {
	mu     sync.Mutex
	tokens map[string]refreshRec
}

func newMemRefresh() *memRefresh { return &memRefresh{tokens: map[string]refreshRec{}} }

func (s *memRefresh) Store(_ context.Context, userID int64, token string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = refreshRec{userID: userID, exp: exp}
	return nil
}

func (s *memRefresh) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.tokens[token]; ok {
		rec.revoked = true
		s.tokens[token] = rec
	}
	return nil
}

func (s *memRefresh) IsValid(_ context.Context, token string, now time.Time) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok || rec.revoked || now.After(rec.exp) {
		return 0, false, nil
	}
	return rec.userID, true, nil
}

type memCompanies struct {
	mu        sync.Mutex
	companies map[int64]models.Company
	nextID    int64
}

func newMemCompanies() *memCompanies { return &memCompanies{companies: map[int64]models.Company{}} }

func (s *memCompanies) Create(_ context.Context, name string) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.companies {
		if c.Name == name {
			return models.Company{}, fmt.Errorf("%w: company %q already exists", apperr.ErrConflict, name)
		}
	}
	s.nextID++
	c := models.Company{ID: s.nextID, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.companies[c.ID] = c
	return c, nil
}

func (s *memCompanies) GetByID(_ context.Context, id int64) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return models.Company{}, fmt.Errorf("%w: company %d", apperr.ErrNotFound, id)
	}
	return c, nil
}

func (s *memCompanies) List(_ context.Context) ([]models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Company{}
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCompanies) Update(_ context.Context, id int64, name string) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return models.Company{}, fmt.Errorf("%w: company %d", apperr.ErrNotFound, id)
	}
	c.Name = name
	s.companies[id] = c
	return c, nil
}

func (s *memCompanies) Delete(_ context.Context, id int64) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return models.Company{}, fmt.Errorf("%w: company %d", apperr.ErrNotFound, id)
	}
	delete(s.companies, id)
	return c, nil
}

type memLocations struct {
	mu     sync.Mutex
	locs   map[int64]models.Location
	nextID int64
	logs   *memLogs // referencing logs block deletion, like the FK
}

func newMemLocations() *memLocations { return &memLocations{locs: map[int64]models.Location{}} }

func (s *memLocations) Create(_ context.Context, l models.Location) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l.ID = s.nextID
	l.IsActive = true
	s.locs[l.ID] = l
	return l, nil
}

func (s *memLocations) GetByID(_ context.Context, id int64) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locs[id]
	if !ok {
		return models.Location{}, fmt.Errorf("%w: location %d", apperr.ErrNotFound, id)
	}
	return l, nil
}

func (s *memLocations) ListByOwner(_ context.Context, ownerType string, ownerID int64, includeInactive bool) ([]models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Location{}
	for _, l := range s.locs {
		if l.OwnerType == ownerType && l.OwnerID == ownerID && (l.IsActive || includeInactive) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memLocations) FindActiveForOwner(ctx context.Context, ownerType string, ownerID int64) ([]models.Location, error) {
	return s.ListByOwner(ctx, ownerType, ownerID, false)
}

func (s *memLocations) Update(_ context.Context, l models.Location) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locs[l.ID]; !ok {
		return models.Location{}, fmt.Errorf("%w: location %d", apperr.ErrNotFound, l.ID)
	}
	s.locs[l.ID] = l
	return l, nil
}

func (s *memLocations) ToggleActive(_ context.Context, id int64) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locs[id]
	if !ok {
		return models.Location{}, fmt.Errorf("%w: location %d", apperr.ErrNotFound, id)
	}
	l.IsActive = !l.IsActive
	s.locs[id] = l
	return l, nil
}

func (s *memLocations) Delete(_ context.Context, id int64) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locs[id]
	if !ok {
		return models.Location{}, fmt.Errorf("%w: location %d", apperr.ErrNotFound, id)
	}
	if s.logs != nil && s.logs.referencesLocation(id) {
		return models.Location{}, fmt.Errorf("%w: location %d has attendance logs", apperr.ErrConflict, id)
	}
	delete(s.locs, id)
	return l, nil
}

func (s *memLogs) referencesLocation(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.LocationID != nil && *l.LocationID == id {
			return true
		}
	}
	return false
}

type memLogs struct {
	mu     sync.Mutex
	logs   []models.LogEntry
	users  *memUsers
	nextID int64
	err    error
}

func (s *memLogs) Create(_ context.Context, in attendance.NewLog) (models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.LogEntry{}, s.err
	}
	s.nextID++
	e := models.LogEntry{
		ID: s.nextID, UserID: in.UserID, LocationID: in.LocationID, Type: in.Type,
		Latitude: in.Latitude, Longitude: in.Longitude, Timestamp: in.Timestamp,
		PhotoBase64: in.PhotoBase64, CreatedAt: in.Timestamp,
	}
	s.logs = append(s.logs, e)
	return e, nil
}

func (s *memLogs) filter(keep func(models.LogEntry) bool) ([]models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []models.LogEntry{}
	for _, l := range s.logs {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *memLogs) FindByUser(_ context.Context, userID int64) ([]models.LogEntry, error) {
	return s.filter(func(l models.LogEntry) bool { return l.UserID == userID })
}

func (s *memLogs) FindByUserForDay(ctx context.Context, userID int64, dayStart, dayEnd time.Time) ([]models.LogEntry, error) {
	return s.FindByUserBetween(ctx, userID, dayStart, dayEnd)
}

func (s *memLogs) FindByUserBetween(_ context.Context, userID int64, from, to time.Time) ([]models.LogEntry, error) {
	return s.filter(func(l models.LogEntry) bool {
		return l.UserID == userID && !l.Timestamp.Before(from) && !l.Timestamp.After(to)
	})
}

func (s *memLogs) FindByLocation(_ context.Context, locationID int64) ([]models.LogEntry, error) {
	return s.filter(func(l models.LogEntry) bool { return l.LocationID != nil && *l.LocationID == locationID })
}

func (s *memLogs) FindByCompany(ctx context.Context, companyID int64) ([]models.LogEntry, error) {
	members := map[int64]bool{}
	s.users.mu.Lock()
	for _, u := range s.users.users {
		if u.CompanyID != nil && *u.CompanyID == companyID {
			members[u.ID] = true
		}
	}
	s.users.mu.Unlock()
	return s.filter(func(l models.LogEntry) bool { return members[l.UserID] })
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

var errTest = errors.New("pq: relation \"logs\" does not exist")
