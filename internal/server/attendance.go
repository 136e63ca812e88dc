package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type AttendancePunch struct {
	ID         string    `json:"id"`
	EmployeeID int       `json:"employee_id"`
	PunchType  string    `json:"punch_type"`
	PunchTime  time.Time `json:"punch_time"`
	Note       string    `json:"note,omitempty"`
}

type submitPunchParams struct {
	EmployeeID int
	PunchType  string
	PunchTime  time.Time
	Note       string
}

type AttendanceStore interface {
	SubmitPunch(ctx context.Context, p submitPunchParams) (AttendancePunch, error)
	ListPunches(ctx context.Context, employeeID int, fromUTC time.Time, toUTC time.Time, limit int) ([]AttendancePunch, error)
}

func validatePunchParams(p submitPunchParams) (submitPunchParams, error) {
	if p.EmployeeID <= 0 {
		return submitPunchParams{}, newBadRequestError("employee_id is required")
	}
	p.PunchType = strings.TrimSpace(strings.ToLower(p.PunchType))
	if p.PunchType != "in" && p.PunchType != "out" {
		return submitPunchParams{}, newBadRequestError("punch_type must be in or out")
	}
	if p.PunchTime.IsZero() {
		p.PunchTime = time.Now().UTC()
	}
	p.PunchTime = p.PunchTime.UTC()
	p.Note = strings.TrimSpace(p.Note)
	return p, nil
}

func clampPunchLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 2000 {
		return 2000
	}
	return limit
}

type attendancePGStore struct {
	pool pgBeginner
}

func newAttendancePGStore(pool pgBeginner) *attendancePGStore {
	return &attendancePGStore{pool: pool}
}

func (s *attendancePGStore) SubmitPunch(ctx context.Context, p submitPunchParams) (AttendancePunch, error) {
	p, err := validatePunchParams(p)
	if err != nil {
		return AttendancePunch{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return AttendancePunch{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return AttendancePunch{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	out := AttendancePunch{ID: id.String(), EmployeeID: p.EmployeeID, PunchType: p.PunchType, PunchTime: p.PunchTime, Note: p.Note}
	if _, err := tx.Exec(ctx, `
INSERT INTO crew.attendance_punches (id, employee_id, punch_type, punch_time, note)
VALUES ($1::uuid, $2, $3, $4, $5)
`, out.ID, out.EmployeeID, out.PunchType, out.PunchTime, out.Note); err != nil {
		return AttendancePunch{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return AttendancePunch{}, err
	}
	return out, nil
}

func (s *attendancePGStore) ListPunches(ctx context.Context, employeeID int, fromUTC time.Time, toUTC time.Time, limit int) ([]AttendancePunch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT id::text, employee_id, punch_type, punch_time, note
FROM crew.attendance_punches
WHERE employee_id = $1
  AND punch_time >= $2
  AND punch_time < $3
ORDER BY punch_time DESC, id DESC
LIMIT $4
`, employeeID, fromUTC, toUTC, clampPunchLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttendancePunch
	for rows.Next() {
		var p AttendancePunch
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.PunchType, &p.PunchTime, &p.Note); err != nil {
			return nil, err
		}
		p.PunchTime = p.PunchTime.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

type attendanceMemoryStore struct {
	mu       sync.Mutex
	byPerson map[int][]AttendancePunch
}

func newAttendanceMemoryStore() *attendanceMemoryStore {
	return &attendanceMemoryStore{byPerson: map[int][]AttendancePunch{}}
}

func (s *attendanceMemoryStore) SubmitPunch(_ context.Context, p submitPunchParams) (AttendancePunch, error) {
	p, err := validatePunchParams(p)
	if err != nil {
		return AttendancePunch{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return AttendancePunch{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := AttendancePunch{ID: id.String(), EmployeeID: p.EmployeeID, PunchType: p.PunchType, PunchTime: p.PunchTime, Note: p.Note}
	s.byPerson[p.EmployeeID] = append(s.byPerson[p.EmployeeID], out)
	return out, nil
}

func (s *attendanceMemoryStore) ListPunches(_ context.Context, employeeID int, fromUTC time.Time, toUTC time.Time, limit int) ([]AttendancePunch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit = clampPunchLimit(limit)
	var out []AttendancePunch
	punches := s.byPerson[employeeID]
	for i := len(punches) - 1; i >= 0 && len(out) < limit; i-- {
		p := punches[i]
		if p.PunchTime.Before(fromUTC) || !p.PunchTime.Before(toUTC) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
