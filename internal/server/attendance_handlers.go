package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/calebperk/crewledger/internal/routing"
	"github.com/calebperk/crewledger/pkg/authz"
)

const dateLayout = "2006-01-02"

// canActForEmployee: admins and managers may act on any employee record;
// everyone else only on their own.
func canActForEmployee(p Principal, employeeID int) bool {
	if p.RoleSlug == authz.RoleAdmin || p.RoleSlug == authz.RoleManager {
		return true
	}
	return p.EmployeeID == employeeID
}

type punchRequest struct {
	EmployeeID int    `json:"employee_id"`
	PunchType  string `json:"punch_type"`
	PunchTime  string `json:"punch_time,omitempty"`
	Note       string `json:"note,omitempty"`
}

func handleAttendanceAPI(w http.ResponseWriter, r *http.Request, store AttendanceStore) {
	principal, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return
	}

	switch r.Method {
	case http.MethodGet:
		employeeID := principal.EmployeeID
		if id, ok := queryInt(r, "employee_id"); ok {
			employeeID = id
		}
		if !canActForEmployee(principal, employeeID) {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		day := strings.TrimSpace(r.URL.Query().Get("date"))
		if day == "" {
			day = time.Now().UTC().Format(dateLayout)
		}
		from, err := time.Parse(dateLayout, day)
		if err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_date", "invalid date")
			return
		}
		limit, _ := queryInt(r, "limit")

		punches, err := store.ListPunches(r.Context(), employeeID, from, from.AddDate(0, 0, 1), limit)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if punches == nil {
			punches = []AttendancePunch{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"employee_id": employeeID,
			"date":        day,
			"punches":     punches,
		})

	case http.MethodPost:
		var req punchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		if req.EmployeeID == 0 {
			req.EmployeeID = principal.EmployeeID
		}
		if !canActForEmployee(principal, req.EmployeeID) {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		var punchTime time.Time
		if req.PunchTime != "" {
			t, err := time.Parse(time.RFC3339, req.PunchTime)
			if err != nil {
				routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_punch_time", "punch_time must be RFC3339")
				return
			}
			punchTime = t
		}

		punch, err := store.SubmitPunch(r.Context(), submitPunchParams{
			EmployeeID: req.EmployeeID,
			PunchType:  req.PunchType,
			PunchTime:  punchTime,
			Note:       req.Note,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"punch": punch})

	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}
