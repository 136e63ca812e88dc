package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxDocumentBytes = 10 << 20 // 10 MiB upload cap

type Document struct {
	ID          string    `json:"id"`
	EmployeeID  int       `json:"employee_id"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type documentParams struct {
	EmployeeID  int
	Kind        string
	Filename    string
	ContentType string
	SizeBytes   int64
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, p documentParams) (Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context, employeeID int, limit int) ([]Document, error)
}

// BlobStore holds document bytes keyed by document id; metadata stays in the
// DocumentStore.
type BlobStore interface {
	SaveBlob(id string, r io.Reader) (int64, error)
	OpenBlob(id string) (io.ReadCloser, error)
}

var documentKinds = map[string]bool{
	"id_proof": true,
	"contract": true,
	"other":    true,
}

func validateDocumentParams(p documentParams) (documentParams, error) {
	if p.EmployeeID <= 0 {
		return documentParams{}, newBadRequestError("employee_id is required")
	}
	p.Kind = strings.TrimSpace(strings.ToLower(p.Kind))
	if p.Kind == "" {
		p.Kind = "other"
	}
	if !documentKinds[p.Kind] {
		return documentParams{}, newBadRequestError("kind must be id_proof, contract or other")
	}
	p.Filename = filepath.Base(strings.TrimSpace(p.Filename))
	if p.Filename == "" || p.Filename == "." || p.Filename == "/" {
		return documentParams{}, newBadRequestError("filename is required")
	}
	if p.ContentType == "" {
		p.ContentType = "application/octet-stream"
	}
	return p, nil
}

type documentPGStore struct {
	pool pgBeginner
}

func newDocumentPGStore(pool pgBeginner) *documentPGStore {
	return &documentPGStore{pool: pool}
}

func (s *documentPGStore) CreateDocument(ctx context.Context, p documentParams) (Document, error) {
	p, err := validateDocumentParams(p)
	if err != nil {
		return Document{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Document{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	d := Document{ID: id.String(), EmployeeID: p.EmployeeID, Kind: p.Kind, Filename: p.Filename, ContentType: p.ContentType, SizeBytes: p.SizeBytes}
	if err := tx.QueryRow(ctx, `
INSERT INTO crew.documents (id, employee_id, kind, filename, content_type, size_bytes)
VALUES ($1::uuid, $2, $3, $4, $5, $6)
RETURNING uploaded_at
`, d.ID, d.EmployeeID, d.Kind, d.Filename, d.ContentType, d.SizeBytes).Scan(&d.UploadedAt); err != nil {
		return Document{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Document{}, err
	}
	d.UploadedAt = d.UploadedAt.UTC()
	return d, nil
}

func (s *documentPGStore) GetDocument(ctx context.Context, id string) (Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var d Document
	if err := tx.QueryRow(ctx, `
SELECT id::text, employee_id, kind, filename, content_type, size_bytes, uploaded_at
FROM crew.documents
WHERE id = $1::uuid
`, id).Scan(&d.ID, &d.EmployeeID, &d.Kind, &d.Filename, &d.ContentType, &d.SizeBytes, &d.UploadedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, newNotFoundError("document not found")
		}
		return Document{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Document{}, err
	}
	d.UploadedAt = d.UploadedAt.UTC()
	return d, nil
}

func (s *documentPGStore) ListDocuments(ctx context.Context, employeeID int, limit int) ([]Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT id::text, employee_id, kind, filename, content_type, size_bytes, uploaded_at
FROM crew.documents
WHERE ($1 = 0 OR employee_id = $1)
ORDER BY uploaded_at DESC, id DESC
LIMIT $2
`, employeeID, clampReportLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.EmployeeID, &d.Kind, &d.Filename, &d.ContentType, &d.SizeBytes, &d.UploadedAt); err != nil {
			return nil, err
		}
		d.UploadedAt = d.UploadedAt.UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

type documentMemoryStore struct {
	mu   sync.Mutex
	rows []Document
}

func newDocumentMemoryStore() *documentMemoryStore {
	return &documentMemoryStore{}
}

func (s *documentMemoryStore) CreateDocument(_ context.Context, p documentParams) (Document, error) {
	p, err := validateDocumentParams(p)
	if err != nil {
		return Document{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := Document{
		ID:          id.String(),
		EmployeeID:  p.EmployeeID,
		Kind:        p.Kind,
		Filename:    p.Filename,
		ContentType: p.ContentType,
		SizeBytes:   p.SizeBytes,
		UploadedAt:  time.Now().UTC(),
	}
	s.rows = append(s.rows, d)
	return d, nil
}

func (s *documentMemoryStore) GetDocument(_ context.Context, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.rows {
		if d.ID == id {
			return d, nil
		}
	}
	return Document{}, newNotFoundError("document not found")
}

func (s *documentMemoryStore) ListDocuments(_ context.Context, employeeID int, limit int) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit = clampReportLimit(limit)
	var out []Document
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if employeeID != 0 && s.rows[i].EmployeeID != employeeID {
			continue
		}
		out = append(out, s.rows[i])
	}
	return out, nil
}

type diskBlobStore struct {
	dir string
}

func newDiskBlobStore(dir string) *diskBlobStore {
	return &diskBlobStore{dir: dir}
}

func uploadsDirFromEnv() string {
	return getenvDefault("UPLOADS_DIR", "uploads")
}

func (s *diskBlobStore) SaveBlob(id string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, io.LimitReader(r, maxDocumentBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return 0, err
	}
	if n > maxDocumentBytes {
		_ = os.Remove(f.Name())
		return 0, newBadRequestError("document exceeds 10 MiB")
	}
	return n, nil
}

func (s *diskBlobStore) OpenBlob(id string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(id)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newNotFoundError("document content not found")
		}
		return nil, err
	}
	return f, nil
}

type memoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: map[string][]byte{}}
}

func (s *memoryBlobStore) SaveBlob(id string, r io.Reader) (int64, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return 0, err
	}
	if int64(len(b)) > maxDocumentBytes {
		return 0, newBadRequestError("document exceeds 10 MiB")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = b
	return int64(len(b)), nil
}

func (s *memoryBlobStore) OpenBlob(id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, newNotFoundError("document content not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
