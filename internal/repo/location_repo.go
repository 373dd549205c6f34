package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/models"
)

type LocationRepo struct{ DB *sql.DB }

func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{DB: db} }

const locationColumns = `id, owner_type, owner_id, name, latitude, longitude, proximity_threshold,
	is_active, office_hours_start, office_hours_end, created_at, updated_at`

func scanLocation(s rowScanner) (models.Location, error) {
	var (
		l          models.Location
		start, end sql.NullString
	)
	err := s.Scan(&l.ID, &l.OwnerType, &l.OwnerID, &l.Name, &l.Latitude, &l.Longitude, &l.ProximityThreshold,
		&l.IsActive, &start, &end, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return models.Location{}, err
	}
	if start.Valid {
		v := start.String
		l.OfficeHoursStart = &v
	}
	if end.Valid {
		v := end.String
		l.OfficeHoursEnd = &v
	}
	return l, nil
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", apperr.ErrNotFound, what, id)
	}
	return err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *LocationRepo) Create(ctx context.Context, l models.Location) (models.Location, error) {
	q := `
	INSERT INTO locations (owner_type, owner_id, name, latitude, longitude, proximity_threshold,
		is_active, office_hours_start, office_hours_end)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
	RETURNING ` + locationColumns
	return scanLocation(r.DB.QueryRowContext(ctx, q,
		l.OwnerType, l.OwnerID, l.Name, l.Latitude, l.Longitude, l.ProximityThreshold,
		nullString(l.OfficeHoursStart), nullString(l.OfficeHoursEnd)))
}

func (r *LocationRepo) GetByID(ctx context.Context, id int64) (models.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	l, err := scanLocation(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		return models.Location{}, notFound(err, "location", id)
	}
	return l, nil
}

func (r *LocationRepo) ListByOwner(ctx context.Context, ownerType string, ownerID int64, includeInactive bool) ([]models.Location, error) {
	q := `SELECT ` + locationColumns + `
	FROM locations
	WHERE owner_type = $1 AND owner_id = $2 AND (is_active OR $3)
	ORDER BY id`
	return r.list(ctx, q, ownerType, ownerID, includeInactive)
}

func (r *LocationRepo) FindActiveForOwner(ctx context.Context, ownerType string, ownerID int64) ([]models.Location, error) {
	return r.ListByOwner(ctx, ownerType, ownerID, false)
}

func (r *LocationRepo) Update(ctx context.Context, l models.Location) (models.Location, error) {
	q := `
	UPDATE locations
	SET name=$2, latitude=$3, longitude=$4, proximity_threshold=$5,
		office_hours_start=$6, office_hours_end=$7, updated_at=NOW()
	WHERE id=$1
	RETURNING ` + locationColumns
	out, err := scanLocation(r.DB.QueryRowContext(ctx, q,
		l.ID, l.Name, l.Latitude, l.Longitude, l.ProximityThreshold,
		nullString(l.OfficeHoursStart), nullString(l.OfficeHoursEnd)))
	if err != nil {
		return models.Location{}, notFound(err, "location", l.ID)
	}
	return out, nil
}

// ToggleActive flips is_active; data is kept either way.
func (r *LocationRepo) ToggleActive(ctx context.Context, id int64) (models.Location, error) {
	q := `
	UPDATE locations SET is_active = NOT is_active, updated_at = NOW()
	WHERE id = $1
	RETURNING ` + locationColumns
	l, err := scanLocation(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		return models.Location{}, notFound(err, "location", id)
	}
	return l, nil
}

func (r *LocationRepo) Delete(ctx context.Context, id int64) (models.Location, error) {
	q := `DELETE FROM locations WHERE id = $1 RETURNING ` + locationColumns
	l, err := scanLocation(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		// log tidak boleh berubah: lokasi yang sudah punya log cukup dinonaktifkan
		if pgCode(err) == pgForeignKeyViolation {
			return models.Location{}, fmt.Errorf("%w: location %d has attendance logs, deactivate it instead", apperr.ErrConflict, id)
		}
		return models.Location{}, notFound(err, "location", id)
	}
	return l, nil
}

func (r *LocationRepo) list(ctx context.Context, q string, args ...any) ([]models.Location, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Location{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
