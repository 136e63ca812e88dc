package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/calebperk/crewledger/internal/routing"
	"github.com/calebperk/crewledger/pkg/orgtree"
)

type employeeView struct {
	orgtree.Employee
	ManagerName string `json:"manager_name"`
	BDMName     string `json:"bdm_name"`
}

func newEmployeeView(e orgtree.Employee, all []orgtree.Employee) employeeView {
	return employeeView{
		Employee:    e,
		ManagerName: orgtree.Resolve(e, all, orgtree.RelationManager).Label(),
		BDMName:     orgtree.Resolve(e, all, orgtree.RelationBDM).Label(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStoreError maps store failures onto the API error envelope.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isBadRequestError(err):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_request", err.Error())
	case isNotFoundError(err):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusNotFound, "not_found", err.Error())
	case pgErrorCode(err) == "23505":
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_request", stablePgMessage(err))
	case isPgInvalidInput(err):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_input", "invalid input")
	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, "store_error", stablePgMessage(err))
	}
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

type employeeCreateRequest struct {
	Code        string `json:"employee_id"`
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	JobLocation string `json:"job_location"`
	Role        string `json:"user_type"`
}

type employeeUpdateRequest struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	JobLocation string `json:"job_location"`
	Role        string `json:"user_type"`
}

func handleEmployeesAPI(w http.ResponseWriter, r *http.Request, store EmployeeStore) {
	switch r.Method {
	case http.MethodGet:
		all, err := store.ListEmployees(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		if id, ok := queryInt(r, "id"); ok {
			e, err := store.GetEmployee(r.Context(), id)
			if err != nil {
				writeStoreError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"employee": newEmployeeView(e, all)})
			return
		}

		filtered := orgtree.FilterByText(all, strings.TrimSpace(r.URL.Query().Get("q")))
		filtered = orgtree.FilterByRole(filtered, strings.TrimSpace(r.URL.Query().Get("role")))

		views := make([]employeeView, 0, len(filtered))
		for _, e := range filtered {
			views = append(views, newEmployeeView(e, all))
		}
		writeJSON(w, http.StatusOK, map[string]any{"employees": views})

	case http.MethodPost:
		var req employeeCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		e, err := store.CreateEmployee(r.Context(), employeeParams{
			Code:        req.Code,
			Name:        req.Name,
			Mobile:      req.Mobile,
			JobLocation: req.JobLocation,
			Role:        req.Role,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"employee": e})

	case http.MethodPatch:
		var req employeeUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		if req.ID <= 0 {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_request", "id is required")
			return
		}
		e, err := store.UpdateEmployee(r.Context(), req.ID, employeePatch{
			Name:        req.Name,
			Mobile:      req.Mobile,
			JobLocation: req.JobLocation,
			Role:        req.Role,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employee": e})

	case http.MethodDelete:
		id, ok := queryInt(r, "id")
		if !ok {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_request", "id is required")
			return
		}
		if err := store.DeleteEmployee(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})

	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

type assignRequest struct {
	EmployeeID int    `json:"employee_id"`
	Relation   string `json:"relation"`
	TargetID   int    `json:"target_id"`
}

func handleEmployeeAssignAPI(w http.ResponseWriter, r *http.Request, store EmployeeStore) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	if req.EmployeeID <= 0 || req.TargetID <= 0 {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_request", "employee_id and target_id are required")
		return
	}

	var (
		e   orgtree.Employee
		err error
	)
	switch orgtree.Relation(strings.TrimSpace(req.Relation)) {
	case orgtree.RelationManager:
		e, err = store.AssignManager(r.Context(), req.EmployeeID, req.TargetID)
	case orgtree.RelationBDM:
		e, err = store.AssignBDM(r.Context(), req.EmployeeID, req.TargetID)
	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_request", "relation must be manager or bdm")
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employee": e})
}

func handleHierarchyAPI(w http.ResponseWriter, r *http.Request, store EmployeeStore) {
	if r.Method != http.MethodGet {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	all, err := store.ListEmployees(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	tree := orgtree.Build(all)
	if tree == nil {
		tree = []orgtree.ManagerNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"managers": tree})
}
