package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/calebperk/crewledger/pkg/orgtree"
)

const testPassword = "correct horse battery staple"

type testEnv struct {
	handler    http.Handler
	employees  *employeeMemoryStore
	accounts   *accountMemoryStore
	sessions   *sessionMemoryStore
	attendance *attendanceMemoryStore
	reports    *reportMemoryStore
	documents  *documentMemoryStore
	blobs      *memoryBlobStore
	products   *productMemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("AUTHZ_MODE", "enforce")

	env := &testEnv{
		employees:  newEmployeeMemoryStore(),
		accounts:   newAccountMemoryStore(),
		sessions:   newSessionMemoryStore(),
		attendance: newAttendanceMemoryStore(),
		reports:    newReportMemoryStore(),
		documents:  newDocumentMemoryStore(),
		blobs:      newMemoryBlobStore(),
		products:   newProductMemoryStore(),
	}
	h, err := NewHandlerWithOptions(HandlerOptions{
		EmployeeStore:   env.employees,
		AccountStore:    env.accounts,
		SessionStore:    env.sessions,
		AttendanceStore: env.attendance,
		ReportStore:     env.reports,
		DocumentStore:   env.documents,
		BlobStore:       env.blobs,
		ProductStore:    env.products,
	})
	if err != nil {
		t.Fatal(err)
	}
	env.handler = h
	return env
}

// seedLogin creates an employee plus an account for it and logs in through the
// session endpoint, returning the employee id and the sid cookie.
func (env *testEnv) seedLogin(t *testing.T, code string, role string, email string) (int, *http.Cookie) {
	t.Helper()
	e, err := env.employees.CreateEmployee(context.Background(), employeeParams{
		Code: code,
		Name: "Employee " + code,
		Role: role,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.accounts.CreateAccount(context.Background(), e.ID, email, testPassword, role); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]string{"email": email, "password": testPassword})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/iam/api/sessions", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sidCookieName {
			return e.ID, c
		}
	}
	t.Fatalf("login %s: no sid cookie", email)
	return 0, nil
}

func (env *testEnv) do(t *testing.T, method string, target string, body io.Reader, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(t *testing.T, method string, target string, payload any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return env.do(t, method, target, bytes.NewReader(b), cookie)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/health", "/healthz"} {
		rec := env.do(t, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
		if rec.Body.String() != "ok" {
			t.Errorf("%s: body %q", path, rec.Body.String())
		}
	}
}

func TestLoginLogoutWhoami(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.seedLogin(t, "ADM-1", string(orgtree.RoleAdmin), "admin@example.com")

	rec := env.do(t, http.MethodGet, "/iam/api/sessions/current", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("whoami: status %d body %s", rec.Code, rec.Body.String())
	}
	var whoami struct {
		Session sessionView `json:"session"`
	}
	decodeBody(t, rec, &whoami)
	if whoami.Session.Email != "admin@example.com" || whoami.Session.Role != string(orgtree.RoleAdmin) {
		t.Fatalf("whoami: %+v", whoami.Session)
	}

	rec = env.do(t, http.MethodDelete, "/iam/api/sessions/current", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/iam/api/sessions/current", nil, cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("whoami after logout: status %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedLogin(t, "ADM-1", string(orgtree.RoleAdmin), "admin@example.com")

	cases := []map[string]string{
		{"email": "admin@example.com", "password": "wrong password"},
		{"email": "nobody@example.com", "password": testPassword},
	}
	for _, payload := range cases {
		rec := env.doJSON(t, http.MethodPost, "/iam/api/sessions", payload, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%v: status %d", payload, rec.Code)
		}
	}
}

func TestAnonymousDeniedOnAPI(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/employees/api/employees", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Code != "unauthenticated" {
		t.Fatalf("code %q", envelope.Code)
	}
}

func TestRoleForbiddenOnAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	rec := env.doJSON(t, http.MethodPost, "/employees/api/employees", map[string]string{
		"employee_id": "EMP-9", "name": "X", "user_type": "manager",
	}, cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bde create employee: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.doJSON(t, http.MethodPost, "/rules/api/employees/query", map[string]string{"expr": "true"}, cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bde query: status %d", rec.Code)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.seedLogin(t, "ADM-1", string(orgtree.RoleAdmin), "admin@example.com")

	rec := env.do(t, http.MethodGet, "/nope/api/nothing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/employees/api/hierarchy", nil, admin)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bad method: status %d", rec.Code)
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	id, cookie := env.seedLogin(t, "MGR-1", string(orgtree.RoleManager), "mgr@example.com")

	rec := env.do(t, http.MethodGet, "/employees/api/employees?id="+strconv.Itoa(id), nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager read: status %d body %s", rec.Code, rec.Body.String())
	}
}
