package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Producao-api/internal/domain/entity"
)

// BatchRepository persistencia de lotes y sus productos (usable con pool o tx).
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.ProductionBatch) error
	CreateProducts(ctx context.Context, products []*entity.ProductionProduct) error
	GetByID(ctx context.Context, id int64) (*entity.ProductionBatch, error)
}

// FiscalDocumentRepository vínculo NFe → lote.
type FiscalDocumentRepository interface {
	Create(ctx context.Context, link *entity.FiscalDocumentLink) error
}

// ProductionProductRepository lectura de productos y registro del resultado de sincronización ERP.
type ProductionProductRepository interface {
	ListByIDs(ctx context.Context, clientID int64, ids []int64) ([]*entity.ProductionProduct, error)
	ListByBatch(ctx context.Context, clientID, batchID int64) ([]*entity.ProductionProduct, error)
	SetRemoteERPID(ctx context.Context, id, remoteID int64, syncedAt time.Time) error
	SetERPSyncError(ctx context.Context, id int64, message string) error
}
