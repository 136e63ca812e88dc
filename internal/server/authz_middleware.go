package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/calebperk/crewledger/internal/routing"
	"github.com/calebperk/crewledger/pkg/authz"
)

func loadAuthorizer() (*authz.Authorizer, error) {
	modelPath := os.Getenv("AUTHZ_MODEL_PATH")
	if modelPath == "" {
		p, err := findConfigFile("config/access/model.conf")
		if err != nil {
			return nil, err
		}
		modelPath = p
	}

	policyPath := os.Getenv("AUTHZ_POLICY_PATH")
	if policyPath == "" {
		p, err := findConfigFile("config/access/policy.csv")
		if err != nil {
			return nil, err
		}
		policyPath = p
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}

	return authz.NewAuthorizer(modelPath, policyPath, mode)
}

// findConfigFile walks up from the working directory so binaries and package
// tests resolve the same checked-in config.
func findConfigFile(rel string) (string, error) {
	path := rel
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: config file not found: " + rel)
}

type authorizer interface {
	Authorize(subject string, object string, action string) (allowed bool, enforced bool, err error)
}

// authzRequirementForRoute is the route -> (object, action) policy table.
// Routes not listed are not subject to policy checks.
func authzRequirementForRoute(method string, path string) (object string, action string, shouldCheck bool) {
	read := method == http.MethodGet || method == http.MethodHead

	switch path {
	case "/employees/api/employees", "/employees/api/employees/assign":
		if read {
			return authz.ObjectEmployeeRecords, authz.ActionRead, true
		}
		return authz.ObjectEmployeeRecords, authz.ActionWrite, true
	case "/employees/api/hierarchy":
		return authz.ObjectEmployeeHierarchy, authz.ActionRead, true
	case "/attendance/api/punches":
		if read {
			return authz.ObjectAttendancePunches, authz.ActionRead, true
		}
		return authz.ObjectAttendancePunches, authz.ActionWrite, true
	case "/reports/api/visits":
		if read {
			return authz.ObjectVisitReports, authz.ActionRead, true
		}
		return authz.ObjectVisitReports, authz.ActionWrite, true
	case "/reports/api/sales":
		if read {
			return authz.ObjectSalesReports, authz.ActionRead, true
		}
		return authz.ObjectSalesReports, authz.ActionWrite, true
	case "/documents/api/documents", "/documents/api/documents/content":
		if read {
			return authz.ObjectDocumentFiles, authz.ActionRead, true
		}
		return authz.ObjectDocumentFiles, authz.ActionWrite, true
	case "/products/api/products":
		if read {
			return authz.ObjectProductCatalog, authz.ActionRead, true
		}
		return authz.ObjectProductCatalog, authz.ActionWrite, true
	case "/rules/api/employees/query":
		return authz.ObjectEmployeeQuery, authz.ActionAdmin, true
	default:
		return "", "", false
	}
}

func authzExempt(path string) bool {
	switch path {
	case "/health", "/healthz", "/iam/api/sessions", "/iam/api/sessions/current":
		return true
	}
	return false
}

func withAuthz(classifier *routing.Classifier, a authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		class := routing.RouteClassUI
		if classifier != nil {
			class = classifier.Classify(path)
		}

		if authzExempt(path) {
			next.ServeHTTP(w, r)
			return
		}

		object, action, shouldCheck := authzRequirementForRoute(r.Method, path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		roleSlug := authz.RoleAnonymous
		if p, ok := currentPrincipal(r.Context()); ok {
			roleSlug = p.RoleSlug
		}
		subject := authz.SubjectFromRoleSlug(roleSlug)

		allowed, enforced, err := a.Authorize(subject, object, action)
		if err != nil {
			routing.WriteError(w, r, class, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if enforced && !allowed {
			if roleSlug == authz.RoleAnonymous {
				routing.WriteError(w, r, class, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
				return
			}
			routing.WriteError(w, r, class, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}
