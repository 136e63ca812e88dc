package server

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/calebperk/crewledger/pkg/orgtree"
	"github.com/jackc/pgx/v5"
)

type employeeParams struct {
	Code        string
	Name        string
	Mobile      string
	JobLocation string
	Role        string
}

type employeePatch struct {
	Name        string
	Mobile      string
	JobLocation string
	Role        string
}

type EmployeeStore interface {
	ListEmployees(ctx context.Context) ([]orgtree.Employee, error)
	GetEmployee(ctx context.Context, id int) (orgtree.Employee, error)
	CreateEmployee(ctx context.Context, p employeeParams) (orgtree.Employee, error)
	UpdateEmployee(ctx context.Context, id int, p employeePatch) (orgtree.Employee, error)
	DeleteEmployee(ctx context.Context, id int) error
	AssignManager(ctx context.Context, employeeID int, managerID int) (orgtree.Employee, error)
	AssignBDM(ctx context.Context, employeeID int, bdmID int) (orgtree.Employee, error)
}

var employeeCodeRe = regexp.MustCompile(`^[A-Z0-9-]{2,16}$`)
var mobileRe = regexp.MustCompile(`^[0-9]{8,15}$`)

func normalizeEmployeeCode(raw string) (string, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return "", newBadRequestError("employee_id is required")
	}
	if !employeeCodeRe.MatchString(raw) {
		return "", newBadRequestError("employee_id must be 2-16 chars of A-Z, 0-9 or -")
	}
	return raw, nil
}

func validateEmployeeParams(p employeeParams) (employeeParams, error) {
	code, err := normalizeEmployeeCode(p.Code)
	if err != nil {
		return employeeParams{}, err
	}
	p.Code = code
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return employeeParams{}, newBadRequestError("name is required")
	}
	p.Mobile = strings.TrimSpace(p.Mobile)
	if p.Mobile != "" && !mobileRe.MatchString(p.Mobile) {
		return employeeParams{}, newBadRequestError("mobile must be 8-15 digits")
	}
	p.JobLocation = strings.TrimSpace(p.JobLocation)
	role, err := orgtree.ParseRole(p.Role)
	if err != nil {
		return employeeParams{}, newBadRequestError("user_type must be one of admin|manager|business_development_manager|business_development_executive")
	}
	p.Role = string(role)
	return p, nil
}

func validateEmployeePatch(p employeePatch) (employeePatch, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Mobile = strings.TrimSpace(p.Mobile)
	p.JobLocation = strings.TrimSpace(p.JobLocation)
	p.Role = strings.TrimSpace(p.Role)
	if p.Name == "" && p.Mobile == "" && p.JobLocation == "" && p.Role == "" {
		return employeePatch{}, newBadRequestError("at least one patch field is required")
	}
	if p.Mobile != "" && !mobileRe.MatchString(p.Mobile) {
		return employeePatch{}, newBadRequestError("mobile must be 8-15 digits")
	}
	if p.Role != "" {
		role, err := orgtree.ParseRole(p.Role)
		if err != nil {
			return employeePatch{}, newBadRequestError("invalid user_type")
		}
		p.Role = string(role)
	}
	return p, nil
}

type employeePGStore struct {
	pool pgBeginner
}

func newEmployeePGStore(pool pgBeginner) *employeePGStore {
	return &employeePGStore{pool: pool}
}

const employeeColumns = `id, code, name, mobile, job_location, role, manager_id, bdm_id`

func scanEmployee(row pgx.Row) (orgtree.Employee, error) {
	var e orgtree.Employee
	if err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Mobile, &e.JobLocation, &e.Role, &e.ManagerID, &e.BDMID); err != nil {
		return orgtree.Employee{}, err
	}
	return e, nil
}

func (s *employeePGStore) ListEmployees(ctx context.Context) ([]orgtree.Employee, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT `+employeeColumns+`
FROM crew.employees
ORDER BY id
LIMIT 1000
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orgtree.Employee
	for rows.Next() {
		var e orgtree.Employee
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Mobile, &e.JobLocation, &e.Role, &e.ManagerID, &e.BDMID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *employeePGStore) GetEmployee(ctx context.Context, id int) (orgtree.Employee, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return orgtree.Employee{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	e, err := scanEmployee(tx.QueryRow(ctx, `
SELECT `+employeeColumns+`
FROM crew.employees
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orgtree.Employee{}, newNotFoundError("employee not found")
		}
		return orgtree.Employee{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return orgtree.Employee{}, err
	}
	return e, nil
}

func (s *employeePGStore) CreateEmployee(ctx context.Context, p employeeParams) (orgtree.Employee, error) {
	p, err := validateEmployeeParams(p)
	if err != nil {
		return orgtree.Employee{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return orgtree.Employee{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	e, err := scanEmployee(tx.QueryRow(ctx, `
INSERT INTO crew.employees (code, name, mobile, job_location, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+employeeColumns+`
`, p.Code, p.Name, p.Mobile, p.JobLocation, p.Role))
	if err != nil {
		return orgtree.Employee{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return orgtree.Employee{}, err
	}
	return e, nil
}

func (s *employeePGStore) UpdateEmployee(ctx context.Context, id int, p employeePatch) (orgtree.Employee, error) {
	p, err := validateEmployeePatch(p)
	if err != nil {
		return orgtree.Employee{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return orgtree.Employee{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	e, err := scanEmployee(tx.QueryRow(ctx, `
UPDATE crew.employees
SET name = COALESCE(NULLIF($2, ''), name),
    mobile = COALESCE(NULLIF($3, ''), mobile),
    job_location = COALESCE(NULLIF($4, ''), job_location),
    role = COALESCE(NULLIF($5, ''), role)
WHERE id = $1
RETURNING `+employeeColumns+`
`, id, p.Name, p.Mobile, p.JobLocation, p.Role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orgtree.Employee{}, newNotFoundError("employee not found")
		}
		return orgtree.Employee{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return orgtree.Employee{}, err
	}
	return e, nil
}

func (s *employeePGStore) DeleteEmployee(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	tag, err := tx.Exec(ctx, `DELETE FROM crew.employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return newNotFoundError("employee not found")
	}

	return tx.Commit(ctx)
}

func (s *employeePGStore) AssignManager(ctx context.Context, employeeID int, managerID int) (orgtree.Employee, error) {
	return s.assign(ctx, employeeID, managerID, orgtree.RelationManager)
}

func (s *employeePGStore) AssignBDM(ctx context.Context, employeeID int, bdmID int) (orgtree.Employee, error) {
	return s.assign(ctx, employeeID, bdmID, orgtree.RelationBDM)
}

func (s *employeePGStore) assign(ctx context.Context, employeeID int, targetID int, rel orgtree.Relation) (orgtree.Employee, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return orgtree.Employee{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	employee, err := scanEmployee(tx.QueryRow(ctx, `
SELECT `+employeeColumns+` FROM crew.employees WHERE id = $1
`, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orgtree.Employee{}, newNotFoundError("employee not found")
		}
		return orgtree.Employee{}, err
	}
	target, err := scanEmployee(tx.QueryRow(ctx, `
SELECT `+employeeColumns+` FROM crew.employees WHERE id = $1
`, targetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orgtree.Employee{}, newNotFoundError("assignment target not found")
		}
		return orgtree.Employee{}, err
	}

	if err := checkAssignment(employee, target, rel); err != nil {
		return orgtree.Employee{}, err
	}

	column := "manager_id"
	if rel == orgtree.RelationBDM {
		column = "bdm_id"
	}
	e, err := scanEmployee(tx.QueryRow(ctx, `
UPDATE crew.employees SET `+column+` = $2 WHERE id = $1
RETURNING `+employeeColumns+`
`, employeeID, targetID))
	if err != nil {
		return orgtree.Employee{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return orgtree.Employee{}, err
	}
	return e, nil
}

// checkAssignment gates both store implementations. The orgtree predicates
// leave the target's role unchecked on purpose; the store layer adds that
// check so malformed assignments cannot enter the database.
func checkAssignment(employee, target orgtree.Employee, rel orgtree.Relation) error {
	switch rel {
	case orgtree.RelationManager:
		if !orgtree.IsManager(target) {
			return newBadRequestError("assignment target is not a manager")
		}
		if !orgtree.CanAssignToManager(employee, target) {
			return newBadRequestError("employee cannot be assigned to this manager")
		}
	case orgtree.RelationBDM:
		if !orgtree.IsBDM(target) {
			return newBadRequestError("assignment target is not a business development manager")
		}
		if !orgtree.CanAssignToBDM(employee, target) {
			return newBadRequestError("employee cannot be assigned to this business development manager")
		}
	default:
		return newBadRequestError("unknown assignment relation")
	}
	return nil
}

type employeeMemoryStore struct {
	mu     sync.Mutex
	nextID int
	rows   []orgtree.Employee
}

func newEmployeeMemoryStore() *employeeMemoryStore {
	return &employeeMemoryStore{nextID: 1}
}

func (s *employeeMemoryStore) ListEmployees(_ context.Context) ([]orgtree.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orgtree.Employee(nil), s.rows...), nil
}

func (s *employeeMemoryStore) GetEmployee(_ context.Context, id int) (orgtree.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.ID == id {
			return e, nil
		}
	}
	return orgtree.Employee{}, newNotFoundError("employee not found")
}

func (s *employeeMemoryStore) CreateEmployee(_ context.Context, p employeeParams) (orgtree.Employee, error) {
	p, err := validateEmployeeParams(p)
	if err != nil {
		return orgtree.Employee{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.Code == p.Code {
			return orgtree.Employee{}, newBadRequestError("EMPLOYEE_CODE_TAKEN")
		}
	}
	e := orgtree.Employee{
		ID:          s.nextID,
		Code:        p.Code,
		Name:        p.Name,
		Mobile:      p.Mobile,
		JobLocation: p.JobLocation,
		Role:        orgtree.Role(p.Role),
	}
	s.nextID++
	s.rows = append(s.rows, e)
	return e, nil
}

func (s *employeeMemoryStore) UpdateEmployee(_ context.Context, id int, p employeePatch) (orgtree.Employee, error) {
	p, err := validateEmployeePatch(p)
	if err != nil {
		return orgtree.Employee{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID != id {
			continue
		}
		if p.Name != "" {
			s.rows[i].Name = p.Name
		}
		if p.Mobile != "" {
			s.rows[i].Mobile = p.Mobile
		}
		if p.JobLocation != "" {
			s.rows[i].JobLocation = p.JobLocation
		}
		if p.Role != "" {
			s.rows[i].Role = orgtree.Role(p.Role)
		}
		return s.rows[i], nil
	}
	return orgtree.Employee{}, newNotFoundError("employee not found")
}

func (s *employeeMemoryStore) DeleteEmployee(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return newNotFoundError("employee not found")
}

func (s *employeeMemoryStore) AssignManager(ctx context.Context, employeeID int, managerID int) (orgtree.Employee, error) {
	return s.assign(employeeID, managerID, orgtree.RelationManager)
}

func (s *employeeMemoryStore) AssignBDM(ctx context.Context, employeeID int, bdmID int) (orgtree.Employee, error) {
	return s.assign(employeeID, bdmID, orgtree.RelationBDM)
}

func (s *employeeMemoryStore) assign(employeeID int, targetID int, rel orgtree.Relation) (orgtree.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ei := -1
	ti := -1
	for i := range s.rows {
		if s.rows[i].ID == employeeID {
			ei = i
		}
		if s.rows[i].ID == targetID {
			ti = i
		}
	}
	if ei < 0 {
		return orgtree.Employee{}, newNotFoundError("employee not found")
	}
	if ti < 0 {
		return orgtree.Employee{}, newNotFoundError("assignment target not found")
	}

	if err := checkAssignment(s.rows[ei], s.rows[ti], rel); err != nil {
		return orgtree.Employee{}, err
	}

	id := targetID
	if rel == orgtree.RelationManager {
		s.rows[ei].ManagerID = &id
	} else {
		s.rows[ei].BDMID = &id
	}
	return s.rows[ei], nil
}
