package handlers

import (
	"context"
	"time"

	"geoabsensi/internal/models"
)

// Narrow views of the repo package, so handlers can be tested with fakes.

type UserStore interface {
	Create(ctx context.Context, username, passHash string, companyID *int64) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	AssignCompany(ctx context.Context, userID, companyID int64) (models.User, error)
}

type RefreshStore interface {
	Store(ctx context.Context, userID int64, token string, exp time.Time) error
	Revoke(ctx context.Context, token string) error
	IsValid(ctx context.Context, token string, now time.Time) (int64, bool, error)
}

type CompanyStore interface {
	Create(ctx context.Context, name string) (models.Company, error)
	GetByID(ctx context.Context, id int64) (models.Company, error)
	List(ctx context.Context) ([]models.Company, error)
	Update(ctx context.Context, id int64, name string) (models.Company, error)
	Delete(ctx context.Context, id int64) (models.Company, error)
}

type LocationStore interface {
	Create(ctx context.Context, l models.Location) (models.Location, error)
	GetByID(ctx context.Context, id int64) (models.Location, error)
	ListByOwner(ctx context.Context, ownerType string, ownerID int64, includeInactive bool) ([]models.Location, error)
	Update(ctx context.Context, l models.Location) (models.Location, error)
	ToggleActive(ctx context.Context, id int64) (models.Location, error)
	Delete(ctx context.Context, id int64) (models.Location, error)
}

type LogReader interface {
	FindByUser(ctx context.Context, userID int64) ([]models.LogEntry, error)
	FindByUserForDay(ctx context.Context, userID int64, dayStart, dayEnd time.Time) ([]models.LogEntry, error)
	FindByUserBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.LogEntry, error)
	FindByLocation(ctx context.Context, locationID int64) ([]models.LogEntry, error)
	FindByCompany(ctx context.Context, companyID int64) ([]models.LogEntry, error)
}
