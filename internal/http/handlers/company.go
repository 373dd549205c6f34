package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"geoabsensi/internal/apperr"
)

type CompanyHandler struct {
	Companies CompanyStore
	Users     UserStore
	Logs      LogReader
	Log       *zap.Logger
}

type companyReq struct {
	Name string `json:"name" validate:"required,max=100"`
}

func companyName(req companyReq) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}
	return name, nil
}

// POST /companies
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req companyReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	name, err := companyName(req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	c, err := h.Companies.Create(ctx, name)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GET /companies
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	out, err := h.Companies.List(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /companies/{id}
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	c, err := h.Companies.GetByID(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// PUT /companies/{id}
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var req companyReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	name, err := companyName(req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	c, err := h.Companies.Update(ctx, id, name)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DELETE /companies/{id}
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	c, err := h.Companies.Delete(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GET /companies/{id}/logs
// Hanya anggota perusahaan yang boleh melihat log.
func (h *CompanyHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	ident, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, ident.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if u.CompanyID == nil || *u.CompanyID != id {
		writeError(w, r, h.Log, fmt.Errorf("%w: not a member of company %d", apperr.ErrForbidden, id))
		return
	}
	logs, err := h.Logs.FindByCompany(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
