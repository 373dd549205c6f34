package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/attendance"
	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

// dedupBucketSeconds sizes the unique (user, type, bucket) index that backs
// the duplicate window when two requests race past the read-check.
const dedupBucketSeconds = 300

type LogRepo struct{ DB *sql.DB }

func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{DB: db} }

const logColumns = `id, user_id, location_id, type, latitude, longitude, "timestamp", photo_base64, created_at`

func scanLog(s rowScanner) (models.LogEntry, error) {
	var (
		e     models.LogEntry
		locID sql.NullInt64
		photo sql.NullString
	)
	if err := s.Scan(&e.ID, &e.UserID, &locID, &e.Type, &e.Latitude, &e.Longitude, &e.Timestamp, &photo, &e.CreatedAt); err != nil {
		return models.LogEntry{}, err
	}
	if locID.Valid {
		id := locID.Int64
		e.LocationID = &id
	}
	if photo.Valid {
		p := photo.String
		e.PhotoBase64 = &p
	}
	e.Timestamp = util.BusinessTime(e.Timestamp)
	return e, nil
}

func (r *LogRepo) Create(ctx context.Context, in attendance.NewLog) (models.LogEntry, error) {
	q := `
	INSERT INTO logs (user_id, location_id, type, latitude, longitude, "timestamp", dedup_bucket, photo_base64)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + logColumns

	var locID sql.NullInt64
	if in.LocationID != nil {
		locID = sql.NullInt64{Int64: *in.LocationID, Valid: true}
	}
	var photo sql.NullString
	if in.PhotoBase64 != nil {
		photo = sql.NullString{String: *in.PhotoBase64, Valid: true}
	}

	e, err := scanLog(r.DB.QueryRowContext(ctx, q,
		in.UserID, locID, in.Type, in.Latitude, in.Longitude, in.Timestamp,
		in.Timestamp.Unix()/dedupBucketSeconds, photo))
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return models.LogEntry{}, fmt.Errorf("%w: recent %s log already exists", apperr.ErrDuplicateLog, in.Type)
		case pgForeignKeyViolation:
			return models.LogEntry{}, fmt.Errorf("%w: location %v", apperr.ErrNotFound, derefID(in.LocationID))
		}
		return models.LogEntry{}, err
	}
	return e, nil
}

func (r *LogRepo) FindByUserForDay(ctx context.Context, userID int64, dayStart, dayEnd time.Time) ([]models.LogEntry, error) {
	return r.FindByUserBetween(ctx, userID, dayStart, dayEnd)
}

// FindByUserBetween returns the user's logs with from <= timestamp <= to, newest first.
func (r *LogRepo) FindByUserBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.LogEntry, error) {
	q := `SELECT ` + logColumns + `
	FROM logs
	WHERE user_id = $1 AND "timestamp" >= $2 AND "timestamp" <= $3
	ORDER BY "timestamp" DESC`
	return r.list(ctx, q, userID, from, to)
}

func (r *LogRepo) FindByUser(ctx context.Context, userID int64) ([]models.LogEntry, error) {
	q := `SELECT ` + logColumns + `
	FROM logs
	WHERE user_id = $1
	ORDER BY "timestamp" DESC`
	return r.list(ctx, q, userID)
}

func (r *LogRepo) FindByLocation(ctx context.Context, locationID int64) ([]models.LogEntry, error) {
	q := `SELECT ` + logColumns + `
	FROM logs
	WHERE location_id = $1
	ORDER BY "timestamp" DESC`
	return r.list(ctx, q, locationID)
}

// FindByCompany: semua log milik anggota perusahaan.
func (r *LogRepo) FindByCompany(ctx context.Context, companyID int64) ([]models.LogEntry, error) {
	q := `SELECT l.id, l.user_id, l.location_id, l.type, l.latitude, l.longitude, l."timestamp", l.photo_base64, l.created_at
	FROM logs l
	JOIN users u ON u.id = l.user_id
	WHERE u.company_id = $1
	ORDER BY l."timestamp" DESC`
	return r.list(ctx, q, companyID)
}

func (r *LogRepo) list(ctx context.Context, q string, args ...any) ([]models.LogEntry, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.LogEntry{}
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func derefID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
