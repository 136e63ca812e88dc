package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/calebperk/crewledger/internal/routing"
)

func handleDocumentsAPI(w http.ResponseWriter, r *http.Request, store DocumentStore, blobs BlobStore) {
	principal, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return
	}

	switch r.Method {
	case http.MethodGet:
		requested, _ := queryInt(r, "employee_id")
		scope, ok := reportScopeForList(principal, requested)
		if !ok {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		limit, _ := queryInt(r, "limit")
		docs, err := store.ListDocuments(r.Context(), scope, limit)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if docs == nil {
			docs = []Document{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})

	case http.MethodPost:
		// Form overhead on top of the blob cap.
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes+(64<<10))
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusRequestEntityTooLarge, "document_too_large", "document exceeds 10 MiB")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "file part is required")
			return
		}
		defer func() { _ = file.Close() }()
		if header.Size > maxDocumentBytes {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusRequestEntityTooLarge, "document_too_large", "document exceeds 10 MiB")
			return
		}

		employeeID := principal.EmployeeID
		if v := strings.TrimSpace(r.FormValue("employee_id")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "employee_id must be an integer")
				return
			}
			employeeID = n
		}
		if !canActForEmployee(principal, employeeID) {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		doc, err := store.CreateDocument(r.Context(), documentParams{
			EmployeeID:  employeeID,
			Kind:        r.FormValue("kind"),
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if _, err := blobs.SaveBlob(doc.ID, file); err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"document": doc})

	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func handleDocumentContentAPI(w http.ResponseWriter, r *http.Request, store DocumentStore, blobs BlobStore) {
	principal, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return
	}
	if r.Method != http.MethodGet {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "id is required")
		return
	}
	doc, err := store.GetDocument(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !canActForEmployee(principal, doc.EmployeeID) {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	blob, err := blobs.OpenBlob(doc.ID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	defer func() { _ = blob.Close() }()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, blob)
}
