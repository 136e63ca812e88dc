package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/calebperk/crewledger/internal/routing"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionView struct {
	AccountID  string `json:"account_id"`
	EmployeeID int    `json:"employee_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

func handleLogin(w http.ResponseWriter, r *http.Request, accounts AccountStore, sessions SessionStore) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnprocessableEntity, "invalid_json", "invalid json")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnprocessableEntity, "invalid_form", "email and password required")
		return
	}

	account, ok, err := accounts.FindAccountByEmail(r.Context(), email)
	if err != nil && !isBadRequestError(err) {
		routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusInternalServerError, "account_lookup_failed", "account lookup failed")
		return
	}
	// Same response for unknown email and wrong password.
	if !ok || err != nil || !verifyPassword(account, req.Password) {
		routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if account.Status != "active" {
		routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusForbidden, "account_inactive", "account inactive")
		return
	}

	sid, err := sessions.CreateSession(r.Context(), account.ID, time.Now().UTC().Add(sessionTTLFromEnv()))
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusInternalServerError, "session_create_failed", "session create failed")
		return
	}
	setSIDCookie(w, sid)
	writeJSON(w, http.StatusOK, map[string]any{"session": sessionView{
		AccountID:  account.ID,
		EmployeeID: account.EmployeeID,
		Email:      account.Email,
		Role:       account.RoleSlug,
	}})
}

func handleLogout(w http.ResponseWriter, r *http.Request, sessions SessionStore) {
	if sid, ok := readSID(r); ok {
		if err := sessions.RevokeSession(r.Context(), sid); err != nil {
			routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusInternalServerError, "session_revoke_failed", "session revoke failed")
			return
		}
	}
	clearSIDCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

func handleWhoami(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sessionView{
		AccountID:  p.AccountID,
		EmployeeID: p.EmployeeID,
		Email:      p.Email,
		Role:       p.RoleSlug,
	}})
}

// withSession resolves the sid cookie to a Principal. Requests without a
// valid session pass through unauthenticated; route policy decides whether
// that is acceptable.
func withSession(accounts AccountStore, sessions SessionStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := readSID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		sess, ok, err := sessions.LookupSession(r.Context(), sid)
		if err != nil || !ok || sess.RevokedAt != nil || time.Now().UTC().After(sess.ExpiresAt) {
			next.ServeHTTP(w, r)
			return
		}
		account, ok, err := accounts.GetAccountByID(r.Context(), sess.AccountID)
		if err != nil || !ok || account.Status != "active" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := withPrincipal(r.Context(), Principal{
			AccountID:  account.ID,
			EmployeeID: account.EmployeeID,
			Email:      account.Email,
			RoleSlug:   account.RoleSlug,
			Status:     account.Status,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
