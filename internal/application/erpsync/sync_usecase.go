package erpsync

import (
	"context"
	"strconv"
	"time"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
	"github.com/jhoicas/Producao-api/internal/infrastructure/erp"
	"github.com/jhoicas/Producao-api/pkg/logger"
)

const msgProductNotFound = "produto não encontrado"

// SyncUseCase carga productos, los publica con el Uploader y registra el resultado de cada uno.
type SyncUseCase struct {
	products    repository.ProductionProductRepository
	uploader    *Uploader
	concurrency int
	log         *logger.Logger
	now         func() time.Time
}

// NewSyncUseCase construye el caso de uso. concurrency es el valor por defecto de las corridas.
func NewSyncUseCase(products repository.ProductionProductRepository, uploader *Uploader, concurrency int, log *logger.Logger) *SyncUseCase {
	return &SyncUseCase{
		products:    products,
		uploader:    uploader,
		concurrency: concurrency,
		log:         log.WithComponent("erp_sync"),
		now:         time.Now,
	}
}

// SyncProducts publica los productos indicados del cliente. Los ids inexistentes
// (o de otro cliente) aparecen como fallidos en el resumen.
func (uc *SyncUseCase) SyncProducts(ctx context.Context, clientID int64, productIDs []int64, concurrency int) (*dto.ERPSyncSummary, error) {
	if len(productIDs) == 0 {
		return nil, &domain.ValidationError{Field: "productIds", Message: "lista vazia"}
	}
	list, err := uc.products.ListByIDs(ctx, clientID, productIDs)
	if err != nil {
		return nil, err
	}

	found := make(map[int64]bool, len(list))
	for _, p := range list {
		found[p.ID] = true
	}
	var missing []int64
	for _, id := range productIDs {
		if !found[id] {
			missing = append(missing, id)
			found[id] = true // ids repetidos en la entrada cuentan una vez
		}
	}

	summary := uc.sync(ctx, list, concurrency)
	for _, id := range missing {
		summary.Results = append(summary.Results, dto.ERPSyncResult{ProductID: id, Error: msgProductNotFound})
		summary.Total++
		summary.Failed++
	}
	return summary, nil
}

// SyncBatch publica todos los productos de un lote del cliente.
func (uc *SyncUseCase) SyncBatch(ctx context.Context, clientID, batchID int64, concurrency int) (*dto.ERPSyncSummary, error) {
	list, err := uc.products.ListByBatch(ctx, clientID, batchID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return uc.sync(ctx, list, concurrency), nil
}

func (uc *SyncUseCase) sync(ctx context.Context, list []*entity.ProductionProduct, concurrency int) *dto.ERPSyncSummary {
	if concurrency <= 0 {
		concurrency = uc.concurrency
	}
	items := make([]Item, len(list))
	for i, p := range list {
		items[i] = Item{LocalID: p.ID, RemoteID: p.RemoteERPID, Payload: ToPayload(p)}
	}

	results := uc.uploader.SyncBatch(ctx, items, concurrency)

	summary := &dto.ERPSyncSummary{Total: len(results), Results: make([]dto.ERPSyncResult, 0, len(results))}
	for _, r := range results {
		out := dto.ERPSyncResult{ProductID: r.LocalID, OK: r.OK, Error: r.Error}
		if r.OK {
			remote := r.RemoteID
			out.RemoteID = &remote
			summary.Synced++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, out)
		uc.persist(ctx, r)
	}
	return summary
}

// persist registra el resultado; un fallo se loguea y no afecta al resto.
func (uc *SyncUseCase) persist(ctx context.Context, r Result) {
	var err error
	if r.OK {
		err = uc.products.SetRemoteERPID(ctx, r.LocalID, r.RemoteID, uc.now())
	} else {
		err = uc.products.SetERPSyncError(ctx, r.LocalID, r.Error)
	}
	if err != nil {
		uc.log.Error().Err(err).Int64("product_id", r.LocalID).Bool("ok", r.OK).Msg("no se pudo registrar el resultado de sincronización")
	}
}

// ToPayload convierte un producto de lote al cuerpo del ERP.
func ToPayload(p *entity.ProductionProduct) erp.ProductPayload {
	name := p.Description
	if name == "" {
		name = p.Code
	}
	unit := p.Unit
	if unit == "" {
		unit = "UN"
	}
	payload := erp.ProductPayload{
		Name:   name,
		Code:   p.Code,
		Price:  p.UnitPrice.InexactFloat64(),
		Unit:   unit,
		Type:   "P",
		Format: "S",
		Status: "A",
		Attributes: map[string]string{
			"lote": strconv.FormatInt(p.BatchID, 10),
		},
	}
	if p.Weight.IsPositive() {
		w := p.Weight.InexactFloat64()
		payload.Dimensions = &erp.Dimensions{NetWeight: w, GrossWeight: w}
	}
	return payload
}
