package repository

import (
	"context"

	"github.com/jhoicas/Producao-api/internal/domain/entity"
)

// ClientRepository resolución de clientes por documento fiscal. (nil, nil) si no existe.
type ClientRepository interface {
	GetByTaxID(ctx context.Context, taxID string) (*entity.Client, error)
}

// BranchRepository acceso a filiales.
type BranchRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Branch, error)
	// FirstByClient devuelve la filial de menor id del cliente.
	FirstByClient(ctx context.Context, clientID int64) (*entity.Branch, error)
}

// SupplierRepository proveedores en el ámbito de un cliente.
type SupplierRepository interface {
	GetByClientAndTaxID(ctx context.Context, clientID int64, taxID string) (*entity.Supplier, error)
}
