package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

type AuthHandler struct {
	Users      UserStore
	Refresh    RefreshStore
	Companies  CompanyStore
	Tokens     *util.TokenService
	RefreshTTL time.Duration
	Log        *zap.Logger
	Now        func() time.Time
}

type registerReq struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=6"`
	CompanyID *int64 `json:"companyId" validate:"omitempty,gt=0"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type assignCompanyReq struct {
	UserID    *int64 `json:"userId" validate:"omitempty,gt=0"`
	CompanyID int64  `json:"companyId" validate:"required,gt=0"`
}

type userResp struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	CompanyID *int64          `json:"companyId"`
	Company   *models.Company `json:"company,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type tokenResp struct {
	Token        string   `json:"token"`
	TokenType    string   `json:"tokenType"`
	ExpiresAt    string   `json:"expiresAt"`
	RefreshToken string   `json:"refreshToken"`
	User         userResp `json:"user"`
}

func (h *AuthHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// describe attaches the company record when the user belongs to one. A
// dangling company id is reported without the record.
func (h *AuthHandler) describe(ctx context.Context, u models.User) (userResp, error) {
	out := userResp{ID: u.ID, Username: u.Username, CompanyID: u.CompanyID, CreatedAt: u.CreatedAt}
	if u.CompanyID == nil || h.Companies == nil {
		return out, nil
	}
	c, err := h.Companies.GetByID(ctx, *u.CompanyID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return out, nil
		}
		return userResp{}, err
	}
	out.Company = &c
	return out, nil
}

// issue signs an access token and stores a fresh refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u models.User) (tokenResp, error) {
	access, exp, err := h.Tokens.SignAccessToken(util.Identity{
		UserID: u.ID, Username: u.Username, CompanyID: u.CompanyID,
	})
	if err != nil {
		return tokenResp{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := randomToken(32)
	if err != nil {
		return tokenResp{}, fmt.Errorf("refresh token: %w", err)
	}
	if err := h.Refresh.Store(ctx, u.ID, refresh, h.now().Add(h.RefreshTTL)); err != nil {
		return tokenResp{}, fmt.Errorf("store refresh token: %w", err)
	}
	user, err := h.describe(ctx, u)
	if err != nil {
		return tokenResp{}, err
	}
	return tokenResp{
		Token:        access,
		TokenType:    "Bearer",
		ExpiresAt:    exp.Format(time.RFC3339),
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		writeError(w, r, h.Log, fmt.Errorf("%w: username too short", apperr.ErrInvalidInput))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, h.Log, fmt.Errorf("hash password: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Username, string(hash), req.CompanyID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	user, err := h.describe(ctx, u)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	writeJSON(w, http.StatusCreated, map[string]any{"message": "registered", "user": user})
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	invalid := fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	u, err := h.Users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = invalid
		}
		writeError(w, r, h.Log, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, r, h.Log, invalid)
		return
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /auth/refresh
// Refresh token dirotasi: yang lama dicabut setelah yang baru tersimpan.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok, err := h.Refresh.IsValid(ctx, req.RefreshToken, h.now())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !ok {
		writeError(w, r, h.Log, fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthorized))
		return
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = fmt.Errorf("%w: user no longer exists", apperr.ErrUnauthorized)
		}
		writeError(w, r, h.Log, err)
		return
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Refresh.Revoke(ctx, req.RefreshToken); err != nil {
		h.Log.Warn("revoke rotated refresh token", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	if err := h.Refresh.Revoke(ctx, req.RefreshToken); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = fmt.Errorf("%w: user no longer exists", apperr.ErrUnauthorized)
		}
		writeError(w, r, h.Log, err)
		return
	}
	user, err := h.describe(ctx, u)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// POST /auth/assign-company
// Only the caller's own account can be assigned.
func (h *AuthHandler) AssignCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	var req assignCompanyReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.UserID != nil && *req.UserID != id.UserID {
		writeError(w, r, h.Log, fmt.Errorf("%w: cannot assign another user", apperr.ErrForbidden))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	u, err := h.Users.AssignCompany(ctx, id.UserID, req.CompanyID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	user, err := h.describe(ctx, u)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
