package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
)

var (
	_ repository.ClientRepository   = (*ClientRepo)(nil)
	_ repository.BranchRepository   = (*BranchRepo)(nil)
	_ repository.SupplierRepository = (*SupplierRepo)(nil)
)

// Los documentos fiscales pueden estar guardados con puntuación; se comparan solo los dígitos.
const digitsOnly = `regexp_replace(tax_id, '[^0-9]', '', 'g')`

// ClientRepo lectura de clientes.
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador.
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

// GetByTaxID busca un cliente activo por CNPJ/CPF (solo dígitos). (nil, nil) si no existe.
func (r *ClientRepo) GetByTaxID(ctx context.Context, taxID string) (*entity.Client, error) {
	query := `SELECT id, name, tax_id, active, created_at FROM clients
		WHERE ` + digitsOnly + ` = $1 AND active ORDER BY id LIMIT 1`
	var c entity.Client
	err := r.q.QueryRow(ctx, query, taxID).Scan(&c.ID, &c.Name, &c.TaxID, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by tax id: %w", err)
	}
	return &c, nil
}

// BranchRepo lectura de filiales.
type BranchRepo struct {
	q Querier
}

// NewBranchRepository construye el adaptador.
func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

// GetByID obtiene una filial. (nil, nil) si no existe.
func (r *BranchRepo) GetByID(ctx context.Context, id int64) (*entity.Branch, error) {
	return r.one(ctx, `SELECT id, client_id, name, COALESCE(tax_id, '') FROM branches WHERE id = $1`, id)
}

// FirstByClient filial de menor id del cliente. (nil, nil) si no tiene.
func (r *BranchRepo) FirstByClient(ctx context.Context, clientID int64) (*entity.Branch, error) {
	return r.one(ctx, `SELECT id, client_id, name, COALESCE(tax_id, '') FROM branches WHERE client_id = $1 ORDER BY id LIMIT 1`, clientID)
}

func (r *BranchRepo) one(ctx context.Context, query string, arg int64) (*entity.Branch, error) {
	var b entity.Branch
	err := r.q.QueryRow(ctx, query, arg).Scan(&b.ID, &b.ClientID, &b.Name, &b.TaxID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

// SupplierRepo lectura de proveedores.
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador.
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

// GetByClientAndTaxID busca el proveedor del cliente por CNPJ/CPF. (nil, nil) si no existe.
func (r *SupplierRepo) GetByClientAndTaxID(ctx context.Context, clientID int64, taxID string) (*entity.Supplier, error) {
	query := `SELECT id, client_id, name, tax_id FROM suppliers
		WHERE client_id = $1 AND ` + digitsOnly + ` = $2 ORDER BY id LIMIT 1`
	var s entity.Supplier
	err := r.q.QueryRow(ctx, query, clientID, taxID).Scan(&s.ID, &s.ClientID, &s.Name, &s.TaxID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}
