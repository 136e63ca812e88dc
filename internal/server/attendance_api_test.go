package server

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/calebperk/crewledger/pkg/orgtree"
)

func TestAttendancePunchSelf(t *testing.T) {
	env := newTestEnv(t)
	id, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	rec := env.doJSON(t, http.MethodPost, "/attendance/api/punches", map[string]any{
		"punch_type": "in",
	}, bde)
	if rec.Code != http.StatusCreated {
		t.Fatalf("punch in: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Punch AttendancePunch `json:"punch"`
	}
	decodeBody(t, rec, &created)
	if created.Punch.EmployeeID != id || created.Punch.PunchType != "in" {
		t.Fatalf("punch: %+v", created.Punch)
	}

	rec = env.doJSON(t, http.MethodPost, "/attendance/api/punches", map[string]any{
		"punch_type": "lunch",
	}, bde)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad punch_type: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/attendance/api/punches", nil, bde)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d body %s", rec.Code, rec.Body.String())
	}
	var list struct {
		EmployeeID int               `json:"employee_id"`
		Punches    []AttendancePunch `json:"punches"`
	}
	decodeBody(t, rec, &list)
	if list.EmployeeID != id || len(list.Punches) != 1 {
		t.Fatalf("list: %+v", list)
	}
}

func TestAttendanceScope(t *testing.T) {
	env := newTestEnv(t)
	bdeID, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")
	otherID, _ := env.seedLogin(t, "BDE-2", string(orgtree.RoleBDE), "other@example.com")
	_, mgr := env.seedLogin(t, "MGR-1", string(orgtree.RoleManager), "mgr@example.com")

	rec := env.doJSON(t, http.MethodPost, "/attendance/api/punches", map[string]any{
		"employee_id": otherID, "punch_type": "in",
	}, bde)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bde punch for other: status %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/attendance/api/punches", map[string]any{
		"employee_id": bdeID, "punch_type": "in",
	}, mgr)
	if rec.Code != http.StatusCreated {
		t.Fatalf("manager punch for report: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/attendance/api/punches?employee_id="+strconv.Itoa(otherID), nil, bde)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bde list other: status %d", rec.Code)
	}
}

func TestAttendanceDayWindow(t *testing.T) {
	env := newTestEnv(t)
	id, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	for _, ts := range []time.Time{yesterday, time.Now().UTC()} {
		rec := env.doJSON(t, http.MethodPost, "/attendance/api/punches", map[string]any{
			"punch_type": "in", "punch_time": ts.Format(time.RFC3339),
		}, bde)
		if rec.Code != http.StatusCreated {
			t.Fatalf("punch at %s: status %d body %s", ts, rec.Code, rec.Body.String())
		}
	}

	rec := env.do(t, http.MethodGet, "/attendance/api/punches?date="+yesterday.Format(dateLayout), nil, bde)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list struct {
		EmployeeID int               `json:"employee_id"`
		Punches    []AttendancePunch `json:"punches"`
	}
	decodeBody(t, rec, &list)
	if list.EmployeeID != id || len(list.Punches) != 1 {
		t.Fatalf("yesterday window: %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/attendance/api/punches?date=not-a-date", nil, bde)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status %d", rec.Code)
	}
}
