package server

import (
	"encoding/json"
	"net/http"

	"github.com/calebperk/crewledger/internal/routing"
	"github.com/calebperk/crewledger/pkg/authz"
)

// reportScopeForList: admins and managers may list across employees (0 means
// no filter); everyone else is pinned to their own rows.
func reportScopeForList(p Principal, requested int) (int, bool) {
	if p.RoleSlug == authz.RoleAdmin || p.RoleSlug == authz.RoleManager {
		return requested, true
	}
	if requested != 0 && requested != p.EmployeeID {
		return 0, false
	}
	return p.EmployeeID, true
}

type visitReportRequest struct {
	EmployeeID   int    `json:"employee_id"`
	VisitDate    string `json:"visit_date"`
	CustomerName string `json:"customer_name"`
	Location     string `json:"location"`
	Purpose      string `json:"purpose"`
	Outcome      string `json:"outcome"`
}

func handleVisitReportsAPI(w http.ResponseWriter, r *http.Request, store ReportStore) {
	principal, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return
	}

	switch r.Method {
	case http.MethodGet:
		requested, _ := queryInt(r, "employee_id")
		scope, ok := reportScopeForList(principal, requested)
		if !ok {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		limit, _ := queryInt(r, "limit")
		visits, err := store.ListVisitReports(r.Context(), scope, limit)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if visits == nil {
			visits = []VisitReport{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"visits": visits})

	case http.MethodPost:
		var req visitReportRequest
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
		v, err := store.SubmitVisitReport(r.Context(), visitReportParams{
			EmployeeID:   req.EmployeeID,
			VisitDate:    req.VisitDate,
			CustomerName: req.CustomerName,
			Location:     req.Location,
			Purpose:      req.Purpose,
			Outcome:      req.Outcome,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"visit": v})

	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

type salesReportRequest struct {
	EmployeeID   int    `json:"employee_id"`
	ReportDate   string `json:"report_date"`
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	Amount       string `json:"amount"`
	CustomerName string `json:"customer_name"`
	Notes        string `json:"notes"`
}

func handleSalesReportsAPI(w http.ResponseWriter, r *http.Request, store ReportStore) {
	principal, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return
	}

	switch r.Method {
	case http.MethodGet:
		requested, _ := queryInt(r, "employee_id")
		scope, ok := reportScopeForList(principal, requested)
		if !ok {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		limit, _ := queryInt(r, "limit")
		sales, err := store.ListSalesReports(r.Context(), scope, limit)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if sales == nil {
			sales = []SalesReport{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales})

	case http.MethodPost:
		var req salesReportRequest
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
		v, err := store.SubmitSalesReport(r.Context(), salesReportParams{
			EmployeeID:   req.EmployeeID,
			ReportDate:   req.ReportDate,
			ProductID:    req.ProductID,
			Quantity:     req.Quantity,
			Amount:       req.Amount,
			CustomerName: req.CustomerName,
			Notes:        req.Notes,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": v})

	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}
