package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"geoabsensi/internal/apperr"
	"geoabsensi/internal/attendance"
	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

// ===== GET /attendance/marks?month=YYYY-MM

type marksResp struct {
	Month       string   `json:"month"`
	DaysPresent []string `json:"daysPresent"`
}

func (h *AttendanceHandler) Marks(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}

	// awal bulan di zona bisnis
	var start time.Time
	if month := r.URL.Query().Get("month"); month == "" {
		now := util.BusinessTime(h.Policy.Clock.Now())
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, util.BusinessTZ)
	} else {
		var err error
		start, err = time.ParseInLocation("2006-01", month, util.BusinessTZ)
		if err != nil {
			writeError(w, r, h.Log, fmt.Errorf("%w: invalid month", apperr.ErrInvalidInput))
			return
		}
	}
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	logs, err := h.Logs.FindByUserBetween(ctx, id.UserID, start, end)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	writeJSON(w, http.StatusOK, marksResp{
		Month:       start.Format("2006-01"),
		DaysPresent: attendance.MarkedDays(logs),
	})
}

// ===== GET /attendance/export?from=YYYY-MM-DD&to=YYYY-MM-DD  (xlsx)

const maxExportDays = 366

func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r, h.Log)
	if !ok {
		return
	}

	from, to, err := exportRange(r, h.Policy.Clock.Now())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	logs, err := h.Logs.FindByUserBetween(ctx, id.UserID, from, to)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	names := h.locationNames(ctx, logs)

	title := fmt.Sprintf("Absensi %s (%s s/d %s)", id.Username, from.Format("2006-01-02"), to.Format("2006-01-02"))
	buf, err := attendance.BuildWorkbook(title, logs, names)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	filename := "absensi_" + strconv.FormatInt(id.UserID, 10) + "_" + from.Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// exportRange defaults to the current business month.
func exportRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	q := r.URL.Query()
	local := util.BusinessTime(now)
	from := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, util.BusinessTZ)
	to := from.AddDate(0, 1, -1)

	var err error
	if s := q.Get("from"); s != "" {
		if from, err = time.ParseInLocation("2006-01-02", s, util.BusinessTZ); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid from", apperr.ErrInvalidInput)
		}
	}
	if s := q.Get("to"); s != "" {
		if to, err = time.ParseInLocation("2006-01-02", s, util.BusinessTZ); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid to", apperr.ErrInvalidInput)
		}
	}
	if to.Before(from) || to.Sub(from) > maxExportDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date range", apperr.ErrInvalidInput)
	}
	_, end := util.BusinessDay(to)
	return from, end, nil
}

func (h *AttendanceHandler) locationNames(ctx context.Context, logs []models.LogEntry) map[int64]string {
	names := make(map[int64]string)
	for _, l := range logs {
		if l.LocationID == nil {
			continue
		}
		if _, ok := names[*l.LocationID]; ok {
			continue
		}
		loc, err := h.Locations.GetByID(ctx, *l.LocationID)
		if err != nil {
			// lokasi sudah dihapus: tampilkan id saja
			continue
		}
		names[loc.ID] = loc.Name
	}
	return names
}
