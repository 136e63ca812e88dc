package server

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/calebperk/crewledger/pkg/orgtree"
)

func TestVisitReportSubmitAndList(t *testing.T) {
	env := newTestEnv(t)
	id, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	rec := env.doJSON(t, http.MethodPost, "/reports/api/visits", map[string]any{
		"customer_name": "Sri Lakshmi Traders",
		"location":      "T Nagar",
		"purpose":       "demo",
	}, bde)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Visit VisitReport `json:"visit"`
	}
	decodeBody(t, rec, &created)
	if created.Visit.EmployeeID != id || created.Visit.VisitDate == "" {
		t.Fatalf("visit: %+v", created.Visit)
	}

	rec = env.doJSON(t, http.MethodPost, "/reports/api/visits", map[string]any{
		"customer_name": "", "location": "nowhere",
	}, bde)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing customer: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/reports/api/visits", nil, bde)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list struct {
		Visits []VisitReport `json:"visits"`
	}
	decodeBody(t, rec, &list)
	if len(list.Visits) != 1 || list.Visits[0].CustomerName != "Sri Lakshmi Traders" {
		t.Fatalf("list: %+v", list.Visits)
	}
}

func TestSalesReportValidation(t *testing.T) {
	env := newTestEnv(t)
	_, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	rec := env.doJSON(t, http.MethodPost, "/reports/api/sales", map[string]any{
		"quantity": 3, "amount": "1499.50", "customer_name": "Annai Stores",
	}, bde)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", rec.Code, rec.Body.String())
	}

	bad := []map[string]any{
		{"quantity": 0, "amount": "10", "customer_name": "X"},
		{"quantity": 2, "amount": "10.999", "customer_name": "X"},
		{"quantity": 2, "amount": "-5", "customer_name": "X"},
		{"quantity": 2, "amount": "10", "customer_name": ""},
	}
	for _, payload := range bad {
		rec := env.doJSON(t, http.MethodPost, "/reports/api/sales", payload, bde)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%v: status %d", payload, rec.Code)
		}
	}
}

func TestReportListScope(t *testing.T) {
	env := newTestEnv(t)
	bdeID, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")
	otherID, other := env.seedLogin(t, "BDE-2", string(orgtree.RoleBDE), "other@example.com")
	_, mgr := env.seedLogin(t, "MGR-1", string(orgtree.RoleManager), "mgr@example.com")

	for _, c := range []struct {
		cookie *http.Cookie
		name   string
	}{{bde, "Customer A"}, {other, "Customer B"}} {
		rec := env.doJSON(t, http.MethodPost, "/reports/api/visits", map[string]any{
			"customer_name": c.name,
		}, c.cookie)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed %s: status %d", c.name, rec.Code)
		}
	}

	// an executive listing without a filter sees only their own rows
	rec := env.do(t, http.MethodGet, "/reports/api/visits", nil, bde)
	var list struct {
		Visits []VisitReport `json:"visits"`
	}
	decodeBody(t, rec, &list)
	if len(list.Visits) != 1 || list.Visits[0].EmployeeID != bdeID {
		t.Fatalf("self scope: %+v", list.Visits)
	}

	rec = env.do(t, http.MethodGet, "/reports/api/visits?employee_id="+strconv.Itoa(otherID), nil, bde)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross scope: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/reports/api/visits", nil, mgr)
	decodeBody(t, rec, &list)
	if len(list.Visits) != 2 {
		t.Fatalf("manager list all: %+v", list.Visits)
	}

	rec = env.do(t, http.MethodGet, "/reports/api/visits?employee_id="+strconv.Itoa(otherID), nil, mgr)
	decodeBody(t, rec, &list)
	if len(list.Visits) != 1 || list.Visits[0].EmployeeID != otherID {
		t.Fatalf("manager filter: %+v", list.Visits)
	}
}
