package server

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// Account is a login identity bound to one employee row.
type Account struct {
	ID           string
	EmployeeID   int
	Email        string
	PasswordHash string
	RoleSlug     string
	Status       string
}

type AccountStore interface {
	CreateAccount(ctx context.Context, employeeID int, email string, password string, roleSlug string) (Account, error)
	FindAccountByEmail(ctx context.Context, email string) (Account, bool, error)
	GetAccountByID(ctx context.Context, id string) (Account, bool, error)
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", newBadRequestError("email is required")
	}
	if _, err := mail.ParseAddress(raw); err != nil {
		return "", newBadRequestError("invalid email")
	}
	return raw, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", newBadRequestError("password must be at least 8 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func verifyPassword(a Account, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

type accountPGStore struct {
	pool pgBeginner
}

func newAccountPGStore(pool pgBeginner) *accountPGStore {
	return &accountPGStore{pool: pool}
}

func (s *accountPGStore) CreateAccount(ctx context.Context, employeeID int, email string, password string, roleSlug string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return Account{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Account{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	a := Account{ID: id.String(), EmployeeID: employeeID, Email: email, PasswordHash: hash, RoleSlug: roleSlug, Status: "active"}
	if _, err := tx.Exec(ctx, `
INSERT INTO crew.accounts (id, employee_id, email, password_hash, role_slug, status)
VALUES ($1::uuid, $2, $3, $4, $5, 'active')
`, a.ID, a.EmployeeID, a.Email, a.PasswordHash, a.RoleSlug); err != nil {
		return Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (s *accountPGStore) FindAccountByEmail(ctx context.Context, email string) (Account, bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Account{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var a Account
	if err := tx.QueryRow(ctx, `
SELECT id::text, employee_id, email, password_hash, role_slug, status
FROM crew.accounts
WHERE email = $1
`, email).Scan(&a.ID, &a.EmployeeID, &a.Email, &a.PasswordHash, &a.RoleSlug, &a.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, false, nil
		}
		return Account{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, false, err
	}
	return a, true, nil
}

func (s *accountPGStore) GetAccountByID(ctx context.Context, id string) (Account, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Account{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var a Account
	if err := tx.QueryRow(ctx, `
SELECT id::text, employee_id, email, password_hash, role_slug, status
FROM crew.accounts
WHERE id = $1::uuid
`, id).Scan(&a.ID, &a.EmployeeID, &a.Email, &a.PasswordHash, &a.RoleSlug, &a.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, false, nil
		}
		return Account{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, false, err
	}
	return a, true, nil
}

type accountMemoryStore struct {
	mu      sync.Mutex
	byEmail map[string]Account
	byID    map[string]Account
}

func newAccountMemoryStore() *accountMemoryStore {
	return &accountMemoryStore{
		byEmail: map[string]Account{},
		byID:    map[string]Account{},
	}
}

func (s *accountMemoryStore) CreateAccount(_ context.Context, employeeID int, email string, password string, roleSlug string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return Account{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return Account{}, newBadRequestError("ACCOUNT_EMAIL_TAKEN")
	}
	a := Account{ID: id.String(), EmployeeID: employeeID, Email: email, PasswordHash: hash, RoleSlug: roleSlug, Status: "active"}
	s.byEmail[email] = a
	s.byID[a.ID] = a
	return a, nil
}

func (s *accountMemoryStore) FindAccountByEmail(_ context.Context, email string) (Account, bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byEmail[email]
	return a, ok, nil
}

func (s *accountMemoryStore) GetAccountByID(_ context.Context, id string) (Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	return a, ok, nil
}
