package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/calebperk/crewledger/internal/routing"
)

type productRequest struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price"`
	Active      *bool  `json:"active"`
}

type productPatchRequest struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	UnitPrice   *string `json:"unit_price"`
	Active      *bool   `json:"active"`
}

func handleProductsAPI(w http.ResponseWriter, r *http.Request, store ProductStore) {
	switch r.Method {
	case http.MethodGet:
		if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
			p, err := store.GetProduct(r.Context(), id)
			if err != nil {
				writeStoreError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"product": p})
			return
		}
		activeOnly := r.URL.Query().Get("active") == "true"
		products, err := store.ListProducts(r.Context(), activeOnly)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if products == nil {
			products = []Product{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})

	case http.MethodPost:
		var req productRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		p, err := store.CreateProduct(r.Context(), productParams{
			SKU:         req.SKU,
			Name:        req.Name,
			Description: req.Description,
			UnitPrice:   req.UnitPrice,
			Active:      active,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": p})

	case http.MethodPatch:
		var req productPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		if strings.TrimSpace(req.ID) == "" {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "id is required")
			return
		}
		p, err := store.UpdateProduct(r.Context(), req.ID, productPatch{
			Name:        req.Name,
			Description: req.Description,
			UnitPrice:   req.UnitPrice,
			Active:      req.Active,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": p})

	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "id is required")
			return
		}
		if err := store.DeleteProduct(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}
