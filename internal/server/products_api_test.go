package server

import (
	"net/http"
	"testing"

	"github.com/calebperk/crewledger/pkg/orgtree"
)

func TestProductCRUD(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.seedLogin(t, "ADM-1", string(orgtree.RoleAdmin), "admin@example.com")

	rec := env.doJSON(t, http.MethodPost, "/products/api/products", map[string]any{
		"sku": "wid-100", "name": "Widget", "unit_price": "249.99",
	}, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Product Product `json:"product"`
	}
	decodeBody(t, rec, &created)
	if created.Product.SKU != "WID-100" || !created.Product.Active {
		t.Fatalf("product: %+v", created.Product)
	}

	rec = env.doJSON(t, http.MethodPost, "/products/api/products", map[string]any{
		"sku": "WID-100", "name": "Widget again", "unit_price": "1",
	}, admin)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate sku: status %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPatch, "/products/api/products", map[string]any{
		"id": created.Product.ID, "unit_price": "199.00", "active": false,
	}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rec.Code, rec.Body.String())
	}
	var patched struct {
		Product Product `json:"product"`
	}
	decodeBody(t, rec, &patched)
	if patched.Product.UnitPrice != "199.00" || patched.Product.Active {
		t.Fatalf("patched: %+v", patched.Product)
	}

	var list struct {
		Products []Product `json:"products"`
	}
	rec = env.do(t, http.MethodGet, "/products/api/products?active=true", nil, admin)
	decodeBody(t, rec, &list)
	if len(list.Products) != 0 {
		t.Fatalf("active list: %+v", list.Products)
	}
	rec = env.do(t, http.MethodGet, "/products/api/products", nil, admin)
	decodeBody(t, rec, &list)
	if len(list.Products) != 1 {
		t.Fatalf("full list: %+v", list.Products)
	}

	rec = env.do(t, http.MethodDelete, "/products/api/products?id="+created.Product.ID, nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/products/api/products?id="+created.Product.ID, nil, admin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", rec.Code)
	}
}

func TestProductValidation(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.seedLogin(t, "ADM-1", string(orgtree.RoleAdmin), "admin@example.com")

	bad := []map[string]any{
		{"sku": "x", "name": "Too short sku", "unit_price": "10"},
		{"sku": "OK-1", "name": "", "unit_price": "10"},
		{"sku": "OK-1", "name": "Bad price", "unit_price": "10.999"},
		{"sku": "OK-1", "name": "Bad price", "unit_price": "ten"},
	}
	for _, payload := range bad {
		rec := env.doJSON(t, http.MethodPost, "/products/api/products", payload, admin)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%v: status %d", payload, rec.Code)
		}
	}
}

func TestProductWriteRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.seedLogin(t, "ADM-1", string(orgtree.RoleAdmin), "admin@example.com")
	_, bde := env.seedLogin(t, "BDE-1", string(orgtree.RoleBDE), "bde@example.com")

	rec := env.doJSON(t, http.MethodPost, "/products/api/products", map[string]any{
		"sku": "WID-1", "name": "Widget", "unit_price": "10",
	}, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/products/api/products", map[string]any{
		"sku": "WID-2", "name": "Widget", "unit_price": "10",
	}, bde)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bde create: status %d", rec.Code)
	}

	// executives can still browse the catalog
	rec = env.do(t, http.MethodGet, "/products/api/products", nil, bde)
	if rec.Code != http.StatusOK {
		t.Fatalf("bde list: status %d", rec.Code)
	}
}
