package server

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type VisitReport struct {
	ID           string    `json:"id"`
	EmployeeID   int       `json:"employee_id"`
	VisitDate    string    `json:"visit_date"`
	CustomerName string    `json:"customer_name"`
	Location     string    `json:"location"`
	Purpose      string    `json:"purpose"`
	Outcome      string    `json:"outcome,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SalesReport struct {
	ID           string    `json:"id"`
	EmployeeID   int       `json:"employee_id"`
	ReportDate   string    `json:"report_date"`
	ProductID    string    `json:"product_id,omitempty"`
	Quantity     int       `json:"quantity"`
	Amount       string    `json:"amount"`
	CustomerName string    `json:"customer_name"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type visitReportParams struct {
	EmployeeID   int
	VisitDate    string
	CustomerName string
	Location     string
	Purpose      string
	Outcome      string
}

type salesReportParams struct {
	EmployeeID   int
	ReportDate   string
	ProductID    string
	Quantity     int
	Amount       string
	CustomerName string
	Notes        string
}

type ReportStore interface {
	SubmitVisitReport(ctx context.Context, p visitReportParams) (VisitReport, error)
	ListVisitReports(ctx context.Context, employeeID int, limit int) ([]VisitReport, error)
	SubmitSalesReport(ctx context.Context, p salesReportParams) (SalesReport, error)
	ListSalesReports(ctx context.Context, employeeID int, limit int) ([]SalesReport, error)
}

var amountRe = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)

func validateVisitReportParams(p visitReportParams) (visitReportParams, error) {
	if p.EmployeeID <= 0 {
		return visitReportParams{}, newBadRequestError("employee_id is required")
	}
	p.VisitDate = strings.TrimSpace(p.VisitDate)
	if p.VisitDate == "" {
		p.VisitDate = time.Now().UTC().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, p.VisitDate); err != nil {
		return visitReportParams{}, newBadRequestError("invalid visit_date")
	}
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	if p.CustomerName == "" {
		return visitReportParams{}, newBadRequestError("customer_name is required")
	}
	p.Location = strings.TrimSpace(p.Location)
	p.Purpose = strings.TrimSpace(p.Purpose)
	p.Outcome = strings.TrimSpace(p.Outcome)
	return p, nil
}

func validateSalesReportParams(p salesReportParams) (salesReportParams, error) {
	if p.EmployeeID <= 0 {
		return salesReportParams{}, newBadRequestError("employee_id is required")
	}
	p.ReportDate = strings.TrimSpace(p.ReportDate)
	if p.ReportDate == "" {
		p.ReportDate = time.Now().UTC().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, p.ReportDate); err != nil {
		return salesReportParams{}, newBadRequestError("invalid report_date")
	}
	if p.Quantity <= 0 {
		return salesReportParams{}, newBadRequestError("quantity must be positive")
	}
	p.Amount = strings.TrimSpace(p.Amount)
	if !amountRe.MatchString(p.Amount) {
		return salesReportParams{}, newBadRequestError("amount must be a decimal with up to 2 places")
	}
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	if p.CustomerName == "" {
		return salesReportParams{}, newBadRequestError("customer_name is required")
	}
	p.ProductID = strings.TrimSpace(p.ProductID)
	p.Notes = strings.TrimSpace(p.Notes)
	return p, nil
}

func clampReportLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

type reportPGStore struct {
	pool pgBeginner
}

func newReportPGStore(pool pgBeginner) *reportPGStore {
	return &reportPGStore{pool: pool}
}

func (s *reportPGStore) SubmitVisitReport(ctx context.Context, p visitReportParams) (VisitReport, error) {
	p, err := validateVisitReportParams(p)
	if err != nil {
		return VisitReport{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return VisitReport{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return VisitReport{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	out := VisitReport{
		ID:           id.String(),
		EmployeeID:   p.EmployeeID,
		VisitDate:    p.VisitDate,
		CustomerName: p.CustomerName,
		Location:     p.Location,
		Purpose:      p.Purpose,
		Outcome:      p.Outcome,
	}
	if err := tx.QueryRow(ctx, `
INSERT INTO crew.visit_reports (id, employee_id, visit_date, customer_name, location, purpose, outcome)
VALUES ($1::uuid, $2, $3::date, $4, $5, $6, $7)
RETURNING created_at
`, out.ID, out.EmployeeID, out.VisitDate, out.CustomerName, out.Location, out.Purpose, out.Outcome).Scan(&out.CreatedAt); err != nil {
		return VisitReport{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return VisitReport{}, err
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return out, nil
}

func (s *reportPGStore) ListVisitReports(ctx context.Context, employeeID int, limit int) ([]VisitReport, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT id::text, employee_id, visit_date::text, customer_name, location, purpose, outcome, created_at
FROM crew.visit_reports
WHERE ($1 = 0 OR employee_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2
`, employeeID, clampReportLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VisitReport
	for rows.Next() {
		var v VisitReport
		if err := rows.Scan(&v.ID, &v.EmployeeID, &v.VisitDate, &v.CustomerName, &v.Location, &v.Purpose, &v.Outcome, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.CreatedAt = v.CreatedAt.UTC()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reportPGStore) SubmitSalesReport(ctx context.Context, p salesReportParams) (SalesReport, error) {
	p, err := validateSalesReportParams(p)
	if err != nil {
		return SalesReport{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return SalesReport{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return SalesReport{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	out := SalesReport{
		ID:           id.String(),
		EmployeeID:   p.EmployeeID,
		ReportDate:   p.ReportDate,
		ProductID:    p.ProductID,
		Quantity:     p.Quantity,
		Amount:       p.Amount,
		CustomerName: p.CustomerName,
		Notes:        p.Notes,
	}
	if err := tx.QueryRow(ctx, `
INSERT INTO crew.sales_reports (id, employee_id, report_date, product_id, quantity, amount, customer_name, notes)
VALUES ($1::uuid, $2, $3::date, NULLIF($4, '')::uuid, $5, $6::numeric, $7, $8)
RETURNING created_at
`, out.ID, out.EmployeeID, out.ReportDate, out.ProductID, out.Quantity, out.Amount, out.CustomerName, out.Notes).Scan(&out.CreatedAt); err != nil {
		return SalesReport{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SalesReport{}, err
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return out, nil
}

func (s *reportPGStore) ListSalesReports(ctx context.Context, employeeID int, limit int) ([]SalesReport, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT id::text, employee_id, report_date::text, COALESCE(product_id::text, ''), quantity, amount::text, customer_name, notes, created_at
FROM crew.sales_reports
WHERE ($1 = 0 OR employee_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2
`, employeeID, clampReportLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesReport
	for rows.Next() {
		var v SalesReport
		if err := rows.Scan(&v.ID, &v.EmployeeID, &v.ReportDate, &v.ProductID, &v.Quantity, &v.Amount, &v.CustomerName, &v.Notes, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.CreatedAt = v.CreatedAt.UTC()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

type reportMemoryStore struct {
	mu     sync.Mutex
	visits []VisitReport
	sales  []SalesReport
}

func newReportMemoryStore() *reportMemoryStore {
	return &reportMemoryStore{}
}

func (s *reportMemoryStore) SubmitVisitReport(_ context.Context, p visitReportParams) (VisitReport, error) {
	p, err := validateVisitReportParams(p)
	if err != nil {
		return VisitReport{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return VisitReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v := VisitReport{
		ID:           id.String(),
		EmployeeID:   p.EmployeeID,
		VisitDate:    p.VisitDate,
		CustomerName: p.CustomerName,
		Location:     p.Location,
		Purpose:      p.Purpose,
		Outcome:      p.Outcome,
		CreatedAt:    time.Now().UTC(),
	}
	s.visits = append(s.visits, v)
	return v, nil
}

func (s *reportMemoryStore) ListVisitReports(_ context.Context, employeeID int, limit int) ([]VisitReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit = clampReportLimit(limit)
	var out []VisitReport
	for i := len(s.visits) - 1; i >= 0 && len(out) < limit; i-- {
		if employeeID != 0 && s.visits[i].EmployeeID != employeeID {
			continue
		}
		out = append(out, s.visits[i])
	}
	return out, nil
}

func (s *reportMemoryStore) SubmitSalesReport(_ context.Context, p salesReportParams) (SalesReport, error) {
	p, err := validateSalesReportParams(p)
	if err != nil {
		return SalesReport{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return SalesReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v := SalesReport{
		ID:           id.String(),
		EmployeeID:   p.EmployeeID,
		ReportDate:   p.ReportDate,
		ProductID:    p.ProductID,
		Quantity:     p.Quantity,
		Amount:       p.Amount,
		CustomerName: p.CustomerName,
		Notes:        p.Notes,
		CreatedAt:    time.Now().UTC(),
	}
	s.sales = append(s.sales, v)
	return v, nil
}

func (s *reportMemoryStore) ListSalesReports(_ context.Context, employeeID int, limit int) ([]SalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit = clampReportLimit(limit)
	var out []SalesReport
	for i := len(s.sales) - 1; i >= 0 && len(out) < limit; i-- {
		if employeeID != 0 && s.sales[i].EmployeeID != employeeID {
			continue
		}
		out = append(out, s.sales[i])
	}
	return out, nil
}
