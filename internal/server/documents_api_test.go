package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/calebperk/crewledger/pkg/orgtree"
)

func uploadDocument(t *testing.T, env *testEnv, cookie *http.Cookie, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/documents/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func TestDocumentUploadAndDownload(t *testing.T) {
	env := newTestEnv(t)
	id, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	content := []byte("scanned contract bytes")
	rec := uploadDocument(t, env, bde, map[string]string{"kind": "contract"}, "contract.pdf", content)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Document Document `json:"document"`
	}
	decodeBody(t, rec, &created)
	doc := created.Document
	if doc.EmployeeID != id || doc.Kind != "contract" || doc.Filename != "contract.pdf" {
		t.Fatalf("document: %+v", doc)
	}
	if doc.SizeBytes != int64(len(content)) {
		t.Fatalf("size: %d", doc.SizeBytes)
	}

	rec = env.do(t, http.MethodGet, "/documents/api/documents/content?id="+doc.ID, nil, bde)
	if rec.Code != http.StatusOK {
		t.Fatalf("download: status %d body %s", rec.Code, rec.Body.String())
	}
	got, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch: %q", got)
	}

	rec = env.do(t, http.MethodGet, "/documents/api/documents", nil, bde)
	var list struct {
		Documents []Document `json:"documents"`
	}
	decodeBody(t, rec, &list)
	if len(list.Documents) != 1 || list.Documents[0].ID != doc.ID {
		t.Fatalf("list: %+v", list.Documents)
	}
}

func TestDocumentKindValidation(t *testing.T) {
	env := newTestEnv(t)
	_, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	rec := uploadDocument(t, env, bde, map[string]string{"kind": "passport"}, "x.bin", []byte("x"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad kind: status %d body %s", rec.Code, rec.Body.String())
	}

	// blank kind defaults to other
	rec = uploadDocument(t, env, bde, nil, "note.txt", []byte("hello"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("default kind: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Document Document `json:"document"`
	}
	decodeBody(t, rec, &created)
	if created.Document.Kind != "other" {
		t.Fatalf("kind: %q", created.Document.Kind)
	}
}

func TestDocumentScope(t *testing.T) {
	env := newTestEnv(t)
	_, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")
	otherID, _ := env.seedLogin(t, "BDE-2", string(orgtree.RoleBDE), "other@example.com")
	_, mgr := env.seedLogin(t, "MGR-1", string(orgtree.RoleManager), "mgr@example.com")

	rec := uploadDocument(t, env, bde, map[string]string{"employee_id": "999"}, "x.bin", []byte("x"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bde upload for other: status %d", rec.Code)
	}

	rec = uploadDocument(t, env, mgr, map[string]string{"employee_id": strconv.Itoa(otherID), "kind": "id_proof"}, "proof.png", []byte("png"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("manager upload for report: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Document Document `json:"document"`
	}
	decodeBody(t, rec, &created)

	// an executive cannot read another employee's document
	rec = env.do(t, http.MethodGet, "/documents/api/documents/content?id="+created.Document.ID, nil, bde)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross download: status %d", rec.Code)
	}
}
