package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
)

var (
	_ repository.BatchRepository             = (*BatchRepo)(nil)
	_ repository.FiscalDocumentRepository    = (*FiscalDocumentRepo)(nil)
	_ repository.ProductionProductRepository = (*ProductionProductRepo)(nil)
)

// BatchRepo lotes de producción (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

// Create inserta el lote y asigna su ID.
func (r *BatchRepo) Create(ctx context.Context, b *entity.ProductionBatch) error {
	query := `
		INSERT INTO production_batches (client_id, branch_id, supplier_id, code, description, received_at,
			estimated_value, volumes, weight, carrier, status, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		b.ClientID, b.BranchID, b.SupplierID, b.Code, b.Description, b.ReceivedAt,
		b.EstimatedValue, b.Volumes, b.Weight, b.Carrier, b.Status, b.Origin, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		if derr := translateWriteError(err); derr != nil {
			return derr
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// CreateProducts inserta todos los productos en un solo round trip (pgx.Batch) y asigna sus IDs.
func (r *BatchRepo) CreateProducts(ctx context.Context, products []*entity.ProductionProduct) error {
	if len(products) == 0 {
		return nil
	}
	query := `
		INSERT INTO production_products (batch_id, client_id, code, description, quantity, unit_price,
			unit, weight, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(query, p.BatchID, p.ClientID, p.Code, p.Description, p.Quantity, p.UnitPrice,
			p.Unit, p.Weight, p.Status, p.CreatedAt)
	}
	br := r.q.SendBatch(ctx, batch)
	for i, p := range products {
		if err := br.QueryRow().Scan(&p.ID); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert product %d: %w", i, err)
		}
	}
	return br.Close()
}

// GetByID obtiene un lote. (nil, nil) si no existe.
func (r *BatchRepo) GetByID(ctx context.Context, id int64) (*entity.ProductionBatch, error) {
	query := `
		SELECT id, client_id, branch_id, supplier_id, code, description, received_at, estimated_value,
			volumes, weight, carrier, status, origin, created_at
		FROM production_batches WHERE id = $1`
	var b entity.ProductionBatch
	err := r.q.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.ClientID, &b.BranchID, &b.SupplierID, &b.Code, &b.Description, &b.ReceivedAt,
		&b.EstimatedValue, &b.Volumes, &b.Weight, &b.Carrier, &b.Status, &b.Origin, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// FiscalDocumentRepo vínculo NFe → lote.
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository construye el adaptador.
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

// Create persiste el vínculo; una clave repetida devuelve domain.ErrDuplicate.
func (r *FiscalDocumentRepo) Create(ctx context.Context, l *entity.FiscalDocumentLink) error {
	query := `
		INSERT INTO batch_fiscal_documents (batch_id, access_key, number, series, issued_at, total_invoice, raw_xml, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var issuedAt *time.Time
	if !l.IssuedAt.IsZero() {
		issuedAt = &l.IssuedAt
	}
	err := r.q.QueryRow(ctx, query,
		l.BatchID, l.AccessKey, l.Number, l.Series, issuedAt, l.TotalInvoice, l.RawXML, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert fiscal document: %w", err)
	}
	return nil
}

// ProductionProductRepo lectura de productos de lote y resultado de sincronización ERP.
type ProductionProductRepo struct {
	q Querier
}

// NewProductionProductRepository construye el adaptador.
func NewProductionProductRepository(q Querier) *ProductionProductRepo {
	return &ProductionProductRepo{q: q}
}

const productColumns = `id, batch_id, client_id, code, description, quantity, unit_price, unit, weight,
	status, remote_erp_id, erp_sync_error, erp_synced_at, created_at`

// ListByIDs productos del cliente con esos ids; los ajenos o inexistentes se omiten.
func (r *ProductionProductRepo) ListByIDs(ctx context.Context, clientID int64, ids []int64) ([]*entity.ProductionProduct, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM production_products WHERE client_id = $1 AND id = ANY($2) ORDER BY id`, clientID, ids)
}

// ListByBatch productos de un lote del cliente.
func (r *ProductionProductRepo) ListByBatch(ctx context.Context, clientID, batchID int64) ([]*entity.ProductionProduct, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM production_products WHERE client_id = $1 AND batch_id = $2 ORDER BY id`, clientID, batchID)
}

func (r *ProductionProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.ProductionProduct, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list production products: %w", err)
	}
	defer rows.Close()
	var list []*entity.ProductionProduct
	for rows.Next() {
		var p entity.ProductionProduct
		if err := rows.Scan(&p.ID, &p.BatchID, &p.ClientID, &p.Code, &p.Description, &p.Quantity, &p.UnitPrice,
			&p.Unit, &p.Weight, &p.Status, &p.RemoteERPID, &p.ERPSyncError, &p.ERPSyncedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan production product: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// SetRemoteERPID registra el id remoto y limpia el error previo.
func (r *ProductionProductRepo) SetRemoteERPID(ctx context.Context, id, remoteID int64, syncedAt time.Time) error {
	return r.exec(ctx, `UPDATE production_products SET remote_erp_id = $2, erp_sync_error = NULL, erp_synced_at = $3 WHERE id = $1`,
		id, remoteID, syncedAt)
}

// SetERPSyncError registra el fallo sin tocar un remote_erp_id existente.
func (r *ProductionProductRepo) SetERPSyncError(ctx context.Context, id int64, message string) error {
	return r.exec(ctx, `UPDATE production_products SET erp_sync_error = $2 WHERE id = $1`, id, message)
}

func (r *ProductionProductRepo) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update production product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
