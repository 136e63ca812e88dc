package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

const sidCookieName = "sid"

var sidRandReader io.Reader = rand.Reader

type Session struct {
	AccountID string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type SessionStore interface {
	CreateSession(ctx context.Context, accountID string, expiresAt time.Time) (sid string, err error)
	LookupSession(ctx context.Context, sid string) (Session, bool, error)
	RevokeSession(ctx context.Context, sid string) error
}

func sessionTTLFromEnv() time.Duration {
	const defaultHours = 24 * 14

	v := os.Getenv("SESSION_TTL_HOURS")
	if v == "" {
		return time.Hour * defaultHours
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return time.Hour * defaultHours
	}
	return time.Hour * time.Duration(n)
}

// newSID returns the cookie value and the sha256 digest stored at rest.
func newSID() (sid string, tokenSha256 []byte, err error) {
	var b [32]byte
	if _, err := sidRandReader.Read(b[:]); err != nil {
		return "", nil, err
	}
	sid = base64.RawURLEncoding.EncodeToString(b[:])
	sum := sha256.Sum256([]byte(sid))
	return sid, sum[:], nil
}

func sidDigest(sid string) []byte {
	sum := sha256.Sum256([]byte(sid))
	return sum[:]
}

func readSID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sidCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func setSIDCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sidCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSIDCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sidCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionPGStore struct {
	pool pgBeginner
}

func newSessionPGStore(pool pgBeginner) *sessionPGStore {
	return &sessionPGStore{pool: pool}
}

func (s *sessionPGStore) CreateSession(ctx context.Context, accountID string, expiresAt time.Time) (string, error) {
	sid, digest, err := newSID()
	if err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO crew.sessions (token_sha256, account_id, expires_at)
VALUES ($1, $2::uuid, $3)
`, digest, accountID, expiresAt.UTC()); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return sid, nil
}

func (s *sessionPGStore) LookupSession(ctx context.Context, sid string) (Session, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Session{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var sess Session
	if err := tx.QueryRow(ctx, `
SELECT account_id::text, expires_at, revoked_at
FROM crew.sessions
WHERE token_sha256 = $1
`, sidDigest(sid)).Scan(&sess.AccountID, &sess.ExpiresAt, &sess.RevokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *sessionPGStore) RevokeSession(ctx context.Context, sid string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
UPDATE crew.sessions
SET revoked_at = now()
WHERE token_sha256 = $1 AND revoked_at IS NULL
`, sidDigest(sid)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type sessionMemoryStore struct {
	mu    sync.Mutex
	bySID map[string]Session
}

func newSessionMemoryStore() *sessionMemoryStore {
	return &sessionMemoryStore{bySID: map[string]Session{}}
}

func (s *sessionMemoryStore) CreateSession(_ context.Context, accountID string, expiresAt time.Time) (string, error) {
	sid, _, err := newSID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySID[sid] = Session{AccountID: accountID, ExpiresAt: expiresAt}
	return sid, nil
}

func (s *sessionMemoryStore) LookupSession(_ context.Context, sid string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.bySID[sid]
	return sess, ok, nil
}

func (s *sessionMemoryStore) RevokeSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.bySID[sid]; ok && sess.RevokedAt == nil {
		now := time.Now().UTC()
		sess.RevokedAt = &now
		s.bySID[sid] = sess
	}
	return nil
}
