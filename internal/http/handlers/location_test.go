package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"geoabsensi/internal/models"
)

func TestLocation_CreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	u, tok := env.seedUser(t, "budi", nil)

	rec := env.do(t, http.MethodPost, "/locations", tok, map[string]any{
		"name": " Kantor Pusat ", "latitude": -6.2, "longitude": 106.8166,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	l := decodeBody[models.Location](t, rec)
	if l.ProximityThreshold != models.DefaultProximityThreshold {
		t.Errorf("expected default threshold, got %v", l.ProximityThreshold)
	}
	if l.OwnerType != models.OwnerUser || l.OwnerID != u.ID || !l.IsActive || l.Name != "Kantor Pusat" {
		t.Errorf("unexpected location %+v", l)
	}
}

func TestLocation_CreateCompanyScope(t *testing.T) {
	env := newTestEnv(t)
	cid := int64(5)
	_, tok := env.seedUser(t, "budi", &cid)
	_, lone := env.seedUser(t, "joko", nil)
	body := map[string]any{"name": "Cabang", "latitude": 1, "longitude": 1, "scope": "company"}

	rec := env.do(t, http.MethodPost, "/locations", tok, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if l := decodeBody[models.Location](t, rec); l.OwnerType != models.OwnerCompany || l.OwnerID != cid {
		t.Errorf("expected company owner, got %+v", l)
	}

	expectError(t, env.do(t, http.MethodPost, "/locations", lone, body), http.StatusBadRequest, "invalid_input")
}

func TestLocation_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.seedUser(t, "budi", nil)

	cases := []map[string]any{
		{"latitude": 1, "longitude": 1},
		{"name": "x", "latitude": 91, "longitude": 1},
		{"name": "x", "latitude": 1, "longitude": 1, "proximityThreshold": 0},
		{"name": "x", "latitude": 1, "longitude": 1, "proximityThreshold": -5},
		{"name": "x", "latitude": 1, "longitude": 1, "officeHoursStart": "8:00"},
		{"name": "x", "latitude": 1, "longitude": 1, "officeHoursEnd": "25:00"},
		{"name": "x", "latitude": 1, "longitude": 1, "scope": "global"},
	}
	for i, body := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			expectError(t, env.do(t, http.MethodPost, "/locations", tok, body), http.StatusBadRequest, "invalid_input")
		})
	}
}

func TestLocation_ListOwnAndCompany(t *testing.T) {
	env := newTestEnv(t)
	cid := int64(5)
	u, tok := env.seedUser(t, "budi", &cid)
	other, _ := env.seedUser(t, "joko", nil)

	mine := env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: u.ID, Name: "Rumah"})
	company := env.seedLocation(t, models.Location{OwnerType: models.OwnerCompany, OwnerID: cid, Name: "Kantor"})
	env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: other.ID, Name: "Lain"})
	off := env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: u.ID, Name: "Lama"})
	_, _ = env.locations.ToggleActive(context.Background(), off.ID)

	got := decodeBody[[]models.Location](t, env.do(t, http.MethodGet, "/locations", tok, nil))
	if len(got) != 2 || got[0].ID != mine.ID || got[1].ID != company.ID {
		t.Fatalf("unexpected list %+v", got)
	}

	got = decodeBody[[]models.Location](t, env.do(t, http.MethodGet, "/locations?includeInactive=true", tok, nil))
	if len(got) != 3 {
		t.Fatalf("expected 3 with inactive, got %d", len(got))
	}
}

func TestLocation_OwnershipHidesOthers(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.seedUser(t, "budi", nil)
	other, _ := env.seedUser(t, "joko", nil)
	theirs := env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: other.ID, Name: "Lain"})

	path := fmt.Sprintf("/locations/%d", theirs.ID)
	expectError(t, env.do(t, http.MethodGet, path, tok, nil), http.StatusNotFound, "not_found")
	expectError(t, env.do(t, http.MethodDelete, path, tok, nil), http.StatusNotFound, "not_found")
	expectError(t, env.do(t, http.MethodPatch, path+"/toggle", tok, nil), http.StatusNotFound, "not_found")
	if _, ok := env.locations.locs[theirs.ID]; !ok {
		t.Fatal("location must not be deleted by a stranger")
	}
}

func TestLocation_UpdateMerges(t *testing.T) {
	env := newTestEnv(t)
	u, tok := env.seedUser(t, "budi", nil)
	l := env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: u.ID, Name: "Rumah",
		Latitude: 1, Longitude: 2, ProximityThreshold: 50})
	path := fmt.Sprintf("/locations/%d", l.ID)

	rec := env.do(t, http.MethodPut, path, tok, map[string]any{"proximityThreshold": 250, "officeHoursStart": "08:00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[models.Location](t, rec)
	if got.ProximityThreshold != 250 || got.Name != "Rumah" || got.Latitude != 1 || got.Longitude != 2 {
		t.Errorf("unexpected merge result %+v", got)
	}
	if got.OfficeHoursStart == nil || *got.OfficeHoursStart != "08:00" {
		t.Errorf("office hours not updated: %+v", got)
	}

	expectError(t, env.do(t, http.MethodPut, path, tok, map[string]any{"latitude": -100}), http.StatusBadRequest, "invalid_input")
	expectError(t, env.do(t, http.MethodPut, path, tok, map[string]any{"proximityThreshold": 0}), http.StatusBadRequest, "invalid_input")
}

func TestLocation_ToggleAndDelete(t *testing.T) {
	env := newTestEnv(t)
	u, tok := env.seedUser(t, "budi", nil)
	l := env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: u.ID, Name: "Rumah"})
	path := fmt.Sprintf("/locations/%d", l.ID)

	got := decodeBody[models.Location](t, env.do(t, http.MethodPatch, path+"/toggle", tok, nil))
	if got.IsActive {
		t.Fatal("expected inactive after toggle")
	}
	got = decodeBody[models.Location](t, env.do(t, http.MethodPatch, path+"/toggle", tok, nil))
	if !got.IsActive {
		t.Fatal("expected active after second toggle")
	}

	if rec := env.do(t, http.MethodDelete, path, tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(t, http.MethodGet, path, tok, nil), http.StatusNotFound, "not_found")
	expectError(t, env.do(t, http.MethodGet, "/locations/abc", tok, nil), http.StatusBadRequest, "invalid_input")
}

func TestLocation_DeleteWithLogsIsConflict(t *testing.T) {
	env := newTestEnv(t)
	u, tok := env.seedUser(t, "budi", nil)
	l := env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: u.ID, Name: "Rumah"})
	env.logs.logs = append(env.logs.logs,
		models.LogEntry{ID: 1, UserID: u.ID, LocationID: &l.ID, Type: models.LogIn, Timestamp: testNow})
	path := fmt.Sprintf("/locations/%d", l.ID)

	expectError(t, env.do(t, http.MethodDelete, path, tok, nil), http.StatusConflict, "conflict")

	got := decodeBody[models.Location](t, env.do(t, http.MethodGet, path, tok, nil))
	if got.ID != l.ID {
		t.Fatalf("location should survive, got %+v", got)
	}
	if env.logs.logs[0].LocationID == nil || *env.logs.logs[0].LocationID != l.ID {
		t.Error("log must keep its location")
	}
}

func TestLocation_Logs(t *testing.T) {
	env := newTestEnv(t)
	u, tok := env.seedUser(t, "budi", nil)
	l := env.seedLocation(t, models.Location{OwnerType: models.OwnerUser, OwnerID: u.ID, Name: "Rumah"})
	env.logs.logs = []models.LogEntry{
		{ID: 1, UserID: u.ID, LocationID: &l.ID, Type: models.LogIn, Timestamp: testNow},
		{ID: 2, UserID: u.ID, Type: models.LogOut, Timestamp: testNow},
	}

	got := decodeBody[[]models.LogEntry](t, env.do(t, http.MethodGet, fmt.Sprintf("/locations/%d/logs", l.ID), tok, nil))
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected logs %+v", got)
	}
}
