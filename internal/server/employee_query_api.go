package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/cel-go/cel"

	"github.com/calebperk/crewledger/internal/routing"
	"github.com/calebperk/crewledger/pkg/orgtree"
)

const maxQueryProgramCacheEntries = 256

var newEmployeeQueryCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("e", cel.MapType(cel.StringType, cel.DynType)))
}

var employeeQueryProgramCache sync.Map
var employeeQueryProgramCacheSize atomic.Int64

type employeeQueryRequest struct {
	Expr string `json:"expr"`
}

type employeeQueryResponse struct {
	Expr      string             `json:"expr"`
	Matched   int                `json:"matched"`
	Scanned   int                `json:"scanned"`
	Skipped   int                `json:"skipped"`
	Employees []orgtree.Employee `json:"employees"`
}

func handleEmployeeQueryAPI(w http.ResponseWriter, r *http.Request, store EmployeeStore) {
	if r.Method != http.MethodPost {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req employeeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	req.Expr = strings.TrimSpace(req.Expr)
	if req.Expr == "" {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "expr is required")
		return
	}

	program, err := loadOrCompileEmployeeQueryProgram(req.Expr)
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_expression", err.Error())
		return
	}

	records, err := store.ListEmployees(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := employeeQueryResponse{Expr: req.Expr, Employees: []orgtree.Employee{}}
	for _, e := range records {
		resp.Scanned++
		out, _, err := program.Eval(map[string]any{"e": employeeQueryVars(e)})
		if err != nil {
			resp.Skipped++
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok {
			resp.Skipped++
			continue
		}
		if matched {
			resp.Matched++
			resp.Employees = append(resp.Employees, e)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func employeeQueryVars(e orgtree.Employee) map[string]any {
	return map[string]any{
		"name":         e.Name,
		"code":         e.Code,
		"role":         string(e.Role),
		"mobile":       e.Mobile,
		"job_location": e.JobLocation,
		"has_manager":  e.ManagerID != nil,
		"has_bdm":      e.BDMID != nil,
	}
}

func loadOrCompileEmployeeQueryProgram(expr string) (cel.Program, error) {
	if cached, ok := employeeQueryProgramCache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newEmployeeQueryCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	// calls on dyn map values type as dyn; non-bool results skip the row at
	// eval time instead
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, errors.New("expression must evaluate to a boolean")
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if employeeQueryProgramCacheSize.Load() < maxQueryProgramCacheEntries {
		if _, loaded := employeeQueryProgramCache.LoadOrStore(expr, program); !loaded {
			employeeQueryProgramCacheSize.Add(1)
		}
	}
	return program, nil
}
