package server

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UnitPrice   string    `json:"unit_price"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type productParams struct {
	SKU         string
	Name        string
	Description string
	UnitPrice   string
	Active      bool
}

type productPatch struct {
	Name        *string
	Description *string
	UnitPrice   *string
	Active      *bool
}

type ProductStore interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p productParams) (Product, error)
	UpdateProduct(ctx context.Context, id string, p productPatch) (Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

var productSKURe = regexp.MustCompile(`^[A-Z0-9-]{2,32}$`)

func validateProductParams(p productParams) (productParams, error) {
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	if !productSKURe.MatchString(p.SKU) {
		return productParams{}, newBadRequestError("sku must match ^[A-Z0-9-]{2,32}$")
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return productParams{}, newBadRequestError("name is required")
	}
	p.UnitPrice = strings.TrimSpace(p.UnitPrice)
	if !amountRe.MatchString(p.UnitPrice) {
		return productParams{}, newBadRequestError("unit_price must be a decimal amount")
	}
	p.Description = strings.TrimSpace(p.Description)
	return p, nil
}

func validateProductPatch(p productPatch) (productPatch, error) {
	if p.Name == nil && p.Description == nil && p.UnitPrice == nil && p.Active == nil {
		return productPatch{}, newBadRequestError("at least one patch field is required")
	}
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		if v == "" {
			return productPatch{}, newBadRequestError("name must not be empty")
		}
		p.Name = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		p.Description = &v
	}
	if p.UnitPrice != nil {
		v := strings.TrimSpace(*p.UnitPrice)
		if !amountRe.MatchString(v) {
			return productPatch{}, newBadRequestError("unit_price must be a decimal amount")
		}
		p.UnitPrice = &v
	}
	return p, nil
}

const productColumns = `id::text, sku, name, description, unit_price::text, active, created_at`

type productPGStore struct {
	pool pgBeginner
}

func newProductPGStore(pool pgBeginner) *productPGStore {
	return &productPGStore{pool: pool}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.UnitPrice, &p.Active, &p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *productPGStore) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT `+productColumns+`
FROM crew.products
WHERE (NOT $1 OR active)
ORDER BY sku
`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
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

func (s *productPGStore) GetProduct(ctx context.Context, id string) (Product, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	p, err := scanProduct(tx.QueryRow(ctx, `
SELECT `+productColumns+`
FROM crew.products
WHERE id = $1::uuid
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, newNotFoundError("product not found")
		}
		return Product{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *productPGStore) CreateProduct(ctx context.Context, params productParams) (Product, error) {
	params, err := validateProductParams(params)
	if err != nil {
		return Product{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Product{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	p, err := scanProduct(tx.QueryRow(ctx, `
INSERT INTO crew.products (id, sku, name, description, unit_price, active)
VALUES ($1::uuid, $2, $3, $4, $5::numeric, $6)
RETURNING `+productColumns+`
`, id.String(), params.SKU, params.Name, params.Description, params.UnitPrice, params.Active))
	if err != nil {
		return Product{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *productPGStore) UpdateProduct(ctx context.Context, id string, patch productPatch) (Product, error) {
	patch, err := validateProductPatch(patch)
	if err != nil {
		return Product{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	p, err := scanProduct(tx.QueryRow(ctx, `
UPDATE crew.products
SET name = COALESCE($2, name),
    description = COALESCE($3, description),
    unit_price = COALESCE($4::numeric, unit_price),
    active = COALESCE($5, active)
WHERE id = $1::uuid
RETURNING `+productColumns+`
`, id, patch.Name, patch.Description, patch.UnitPrice, patch.Active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, newNotFoundError("product not found")
		}
		return Product{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *productPGStore) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	tag, err := tx.Exec(ctx, `DELETE FROM crew.products WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return newNotFoundError("product not found")
	}
	return tx.Commit(ctx)
}

type productMemoryStore struct {
	mu   sync.Mutex
	rows []Product
}

func newProductMemoryStore() *productMemoryStore {
	return &productMemoryStore{}
}

func (s *productMemoryStore) ListProducts(_ context.Context, activeOnly bool) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Product
	for _, p := range s.rows {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *productMemoryStore) GetProduct(_ context.Context, id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, newNotFoundError("product not found")
}

func (s *productMemoryStore) CreateProduct(_ context.Context, params productParams) (Product, error) {
	params, err := validateProductParams(params)
	if err != nil {
		return Product{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.SKU == params.SKU {
			return Product{}, newBadRequestError("PRODUCT_SKU_TAKEN")
		}
	}
	p := Product{
		ID:          id.String(),
		SKU:         params.SKU,
		Name:        params.Name,
		Description: params.Description,
		UnitPrice:   params.UnitPrice,
		Active:      params.Active,
		CreatedAt:   time.Now().UTC(),
	}
	s.rows = append(s.rows, p)
	return p, nil
}

func (s *productMemoryStore) UpdateProduct(_ context.Context, id string, patch productPatch) (Product, error) {
	patch, err := validateProductPatch(patch)
	if err != nil {
		return Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID != id {
			continue
		}
		if patch.Name != nil {
			s.rows[i].Name = *patch.Name
		}
		if patch.Description != nil {
			s.rows[i].Description = *patch.Description
		}
		if patch.UnitPrice != nil {
			s.rows[i].UnitPrice = *patch.UnitPrice
		}
		if patch.Active != nil {
			s.rows[i].Active = *patch.Active
		}
		return s.rows[i], nil
	}
	return Product{}, newNotFoundError("product not found")
}

func (s *productMemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return newNotFoundError("product not found")
}
