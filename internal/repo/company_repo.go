package repo

import (
	"context"
	"database/sql"
	"fmt"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/models"
)

type CompanyRepo struct{ DB *sql.DB }

func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{DB: db} }

func (r *CompanyRepo) Create(ctx context.Context, name string) (models.Company, error) {
	q := `INSERT INTO companies (name) VALUES ($1)
	      RETURNING id, name, created_at, updated_at`
	var c models.Company
	err := r.DB.QueryRowContext(ctx, q, name).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if pgCode(err) == pgUniqueViolation {
		return models.Company{}, fmt.Errorf("%w: company %q already exists", apperr.ErrConflict, name)
	}
	return c, err
}

func (r *CompanyRepo) GetByID(ctx context.Context, id int64) (models.Company, error) {
	q := `SELECT id, name, created_at, updated_at FROM companies WHERE id = $1`
	var c models.Company
	err := r.DB.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Company{}, notFound(err, "company", id)
	}
	return c, nil
}

func (r *CompanyRepo) List(ctx context.Context) ([]models.Company, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CompanyRepo) Update(ctx context.Context, id int64, name string) (models.Company, error) {
	q := `UPDATE companies SET name = $2, updated_at = NOW() WHERE id = $1
	      RETURNING id, name, created_at, updated_at`
	var c models.Company
	err := r.DB.QueryRowContext(ctx, q, id, name).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if pgCode(err) == pgUniqueViolation {
		return models.Company{}, fmt.Errorf("%w: company %q already exists", apperr.ErrConflict, name)
	}
	if err != nil {
		return models.Company{}, notFound(err, "company", id)
	}
	return c, nil
}

func (r *CompanyRepo) Delete(ctx context.Context, id int64) (models.Company, error) {
	q := `DELETE FROM companies WHERE id = $1 RETURNING id, name, created_at, updated_at`
	var c models.Company
	err := r.DB.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Company{}, notFound(err, "company", id)
	}
	return c, nil
}
