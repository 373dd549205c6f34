package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/models"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(s rowScanner) (models.User, error) {
	var (
		u   models.User
		cid sql.NullInt64
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &cid, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	if cid.Valid {
		id := cid.Int64
		u.CompanyID = &id
	}
	return u, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func (r *UserRepo) Create(ctx context.Context, username, passHash string, companyID *int64) (models.User, error) {
	q := `INSERT INTO users (username, password_hash, company_id)
	      VALUES ($1,$2,$3)
	      RETURNING id, username, password_hash, company_id, created_at;`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, username, passHash, nullID(companyID)))
	switch pgCode(err) {
	case pgUniqueViolation:
		return models.User{}, fmt.Errorf("%w: username already exists", apperr.ErrConflict)
	case pgForeignKeyViolation:
		return models.User{}, fmt.Errorf("%w: company %v", apperr.ErrNotFound, derefID(companyID))
	}
	return u, err
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	q := `SELECT id, username, password_hash, company_id, created_at
	      FROM users WHERE username=$1;`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: user %q", apperr.ErrNotFound, username)
	}
	return u, err
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	q := `SELECT id, username, password_hash, company_id, created_at FROM users WHERE id=$1;`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		return models.User{}, notFound(err, "user", id)
	}
	return u, nil
}

func (r *UserRepo) AssignCompany(ctx context.Context, userID, companyID int64) (models.User, error) {
	q := `UPDATE users SET company_id=$2 WHERE id=$1
	      RETURNING id, username, password_hash, company_id, created_at;`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, userID, companyID))
	if pgCode(err) == pgForeignKeyViolation {
		return models.User{}, fmt.Errorf("%w: company %d", apperr.ErrNotFound, companyID)
	}
	if err != nil {
		return models.User{}, notFound(err, "user", userID)
	}
	return u, nil
}

type RefreshRepo struct{ DB *sql.DB }

func NewRefreshRepo(db *sql.DB) *RefreshRepo { return &RefreshRepo{DB: db} }

func (r *RefreshRepo) Store(ctx context.Context, userID int64, token string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1,$2,$3)`,
		userID, token, exp)
	return err
}

func (r *RefreshRepo) Revoke(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked=TRUE WHERE token=$1`, token)
	return err
}

// IsValid returns the owning user when the token exists, is not revoked and has not expired.
func (r *RefreshRepo) IsValid(ctx context.Context, token string, now time.Time) (int64, bool, error) {
	var userID int64
	var revoked bool
	var exp time.Time
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, revoked, expires_at FROM refresh_tokens WHERE token=$1`, token).
		Scan(&userID, &revoked, &exp)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	if revoked || now.After(exp) {
		return 0, false, nil
	}
	return userID, true, nil
}
