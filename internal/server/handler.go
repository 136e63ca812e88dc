package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebperk/crewledger/internal/routing"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

type HandlerOptions struct {
	EmployeeStore   EmployeeStore
	AccountStore    AccountStore
	SessionStore    SessionStore
	AttendanceStore AttendanceStore
	ReportStore     ReportStore
	DocumentStore   DocumentStore
	BlobStore       BlobStore
	ProductStore    ProductStore
	Authorizer      authorizer
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := findConfigFile("config/routing/allowlist.yaml")
		if err != nil {
			return nil, errors.New("server: allowlist not found")
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}
	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	employees := opts.EmployeeStore
	accounts := opts.AccountStore
	sessions := opts.SessionStore
	attendance := opts.AttendanceStore
	reports := opts.ReportStore
	documents := opts.DocumentStore
	blobs := opts.BlobStore
	products := opts.ProductStore

	var pgPool *pgxpool.Pool
	if employees == nil {
		pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
		if err != nil {
			return nil, err
		}
		pgPool = pool
		employees = newEmployeePGStore(pgPool)
	}

	if accounts == nil {
		if pgPool != nil {
			accounts = newAccountPGStore(pgPool)
		} else {
			accounts = newAccountMemoryStore()
		}
	}
	if sessions == nil {
		if pgPool != nil {
			sessions = newSessionPGStore(pgPool)
		} else {
			sessions = newSessionMemoryStore()
		}
	}
	if attendance == nil {
		if pgPool != nil {
			attendance = newAttendancePGStore(pgPool)
		} else {
			attendance = newAttendanceMemoryStore()
		}
	}
	if reports == nil {
		if pgPool != nil {
			reports = newReportPGStore(pgPool)
		} else {
			reports = newReportMemoryStore()
		}
	}
	if documents == nil {
		if pgPool != nil {
			documents = newDocumentPGStore(pgPool)
		} else {
			documents = newDocumentMemoryStore()
		}
	}
	if blobs == nil {
		if pgPool != nil {
			blobs = newDiskBlobStore(uploadsDirFromEnv())
		} else {
			blobs = newMemoryBlobStore()
		}
	}
	if products == nil {
		if pgPool != nil {
			products = newProductPGStore(pgPool)
		} else {
			products = newProductMemoryStore()
		}
	}

	auth := opts.Authorizer
	if auth == nil {
		loaded, err := loadAuthorizer()
		if err != nil {
			return nil, err
		}
		auth = loaded
	}

	router := routing.NewRouter(classifier)

	router.HandleFunc(routing.RouteClassOps, http.MethodGet, "/health", handleHealth)
	router.HandleFunc(routing.RouteClassOps, http.MethodGet, "/healthz", handleHealth)

	router.HandleFunc(routing.RouteClassAuthn, http.MethodPost, "/iam/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleLogin(w, r, accounts, sessions)
	})
	router.HandleFunc(routing.RouteClassAuthn, http.MethodDelete, "/iam/api/sessions/current", func(w http.ResponseWriter, r *http.Request) {
		handleLogout(w, r, sessions)
	})
	router.HandleFunc(routing.RouteClassAuthn, http.MethodGet, "/iam/api/sessions/current", handleWhoami)

	employeesHandler := func(w http.ResponseWriter, r *http.Request) {
		handleEmployeesAPI(w, r, employees)
	}
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete} {
		router.HandleFunc(routing.RouteClassInternalAPI, method, "/employees/api/employees", employeesHandler)
	}
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/employees/api/employees/assign", func(w http.ResponseWriter, r *http.Request) {
		handleEmployeeAssignAPI(w, r, employees)
	})
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodGet, "/employees/api/hierarchy", func(w http.ResponseWriter, r *http.Request) {
		handleHierarchyAPI(w, r, employees)
	})

	attendanceHandler := func(w http.ResponseWriter, r *http.Request) {
		handleAttendanceAPI(w, r, attendance)
	}
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodGet, "/attendance/api/punches", attendanceHandler)
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/attendance/api/punches", attendanceHandler)

	visitsHandler := func(w http.ResponseWriter, r *http.Request) {
		handleVisitReportsAPI(w, r, reports)
	}
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodGet, "/reports/api/visits", visitsHandler)
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/reports/api/visits", visitsHandler)

	salesHandler := func(w http.ResponseWriter, r *http.Request) {
		handleSalesReportsAPI(w, r, reports)
	}
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodGet, "/reports/api/sales", salesHandler)
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/reports/api/sales", salesHandler)

	documentsHandler := func(w http.ResponseWriter, r *http.Request) {
		handleDocumentsAPI(w, r, documents, blobs)
	}
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodGet, "/documents/api/documents", documentsHandler)
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/documents/api/documents", documentsHandler)
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodGet, "/documents/api/documents/content", func(w http.ResponseWriter, r *http.Request) {
		handleDocumentContentAPI(w, r, documents, blobs)
	})

	productsHandler := func(w http.ResponseWriter, r *http.Request) {
		handleProductsAPI(w, r, products)
	}
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete} {
		router.HandleFunc(routing.RouteClassInternalAPI, method, "/products/api/products", productsHandler)
	}

	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/rules/api/employees/query", func(w http.ResponseWriter, r *http.Request) {
		handleEmployeeQueryAPI(w, r, employees)
	})

	return withSession(accounts, sessions, withAuthz(classifier, auth, router)), nil
}

func MustNewHandler() http.Handler {
	h, err := NewHandler()
	if err != nil {
		panic(err)
	}
	return h
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
