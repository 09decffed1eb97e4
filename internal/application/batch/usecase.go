// Package batch crea lotes de producción. Lo usan tanto la carga manual
// como la importación de NFe, de modo que ambos productores comparten reglas.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
	"github.com/jhoicas/Producao-api/pkg/logger"
)

// UseCase alta de lotes con sus productos.
type UseCase struct {
	tx         TxRunner
	branches   repository.BranchRepository
	fiscalDocs repository.FiscalDocumentRepository
	log        *logger.Logger
	now        func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(tx TxRunner, branches repository.BranchRepository, fiscalDocs repository.FiscalDocumentRepository, log *logger.Logger) *UseCase {
	return &UseCase{
		tx:         tx,
		branches:   branches,
		fiscalDocs: fiscalDocs,
		log:        log.WithComponent("batch"),
		now:        time.Now,
	}
}

// CreateBatch valida la filial, inserta lote y productos en una transacción y devuelve el id del lote.
// El vínculo con la NFe se guarda después del commit; si falla se loguea y el lote se mantiene.
func (uc *UseCase) CreateBatch(ctx context.Context, clientID int64, in dto.CreateBatchRequest) (int64, error) {
	if err := validate(in); err != nil {
		return 0, err
	}
	branch, err := uc.branches.GetByID(ctx, in.BranchID)
	if err != nil {
		return 0, fmt.Errorf("get branch: %w", err)
	}
	// una filial de otro cliente se trata igual que una inexistente
	if branch == nil || branch.ClientID != clientID {
		return 0, &domain.ValidationError{Field: "branch_id", Message: "branch not found"}
	}

	now := uc.now()
	b := newBatch(clientID, in, now)

	err = uc.tx.RunBatch(ctx, func(batchRepo repository.BatchRepository) error {
		if err := batchRepo.Create(ctx, b); err != nil {
			return err
		}
		if len(in.Products) == 0 {
			return nil
		}
		products := make([]*entity.ProductionProduct, 0, len(in.Products))
		for _, p := range in.Products {
			products = append(products, newProduct(b, p, now))
		}
		return batchRepo.CreateProducts(ctx, products)
	})
	if err != nil {
		return 0, err
	}

	if in.FiscalDocument != nil {
		uc.linkFiscalDocument(ctx, b.ID, in.FiscalDocument, now)
	}

	uc.log.Info().
		Int64("client_id", clientID).
		Int64("batch_id", b.ID).
		Str("origin", b.Origin).
		Int("products", len(in.Products)).
		Msg("lote creado")
	return b.ID, nil
}

func (uc *UseCase) linkFiscalDocument(ctx context.Context, batchID int64, fd *dto.FiscalDocumentInput, now time.Time) {
	link := &entity.FiscalDocumentLink{
		BatchID:      batchID,
		AccessKey:    fd.AccessKey,
		Number:       fd.Number,
		Series:       fd.Series,
		IssuedAt:     fd.IssuedAt,
		TotalInvoice: fd.TotalInvoice,
		RawXML:       fd.RawXML,
		CreatedAt:    now,
	}
	if err := uc.fiscalDocs.Create(ctx, link); err != nil {
		uc.log.Warn().Err(err).Int64("batch_id", batchID).Str("access_key", fd.AccessKey).
			Msg("no se pudo vincular la NFe al lote")
	}
}

func validate(in dto.CreateBatchRequest) error {
	if in.BranchID <= 0 {
		return &domain.ValidationError{Field: "branch_id", Message: "branch not found"}
	}
	if in.Volumes < 0 {
		return &domain.ValidationError{Field: "volumes", Message: "não pode ser negativo"}
	}
	for i, p := range in.Products {
		if strings.TrimSpace(p.Code) == "" && strings.TrimSpace(p.Description) == "" {
			return &domain.ValidationError{Field: fmt.Sprintf("products[%d]", i), Message: "code ou description obrigatório"}
		}
		if p.Quantity.IsNegative() || p.UnitPrice.IsNegative() {
			return &domain.ValidationError{Field: fmt.Sprintf("products[%d]", i), Message: "valores negativos"}
		}
	}
	return nil
}

func newBatch(clientID int64, in dto.CreateBatchRequest, now time.Time) *entity.ProductionBatch {
	receivedAt := now
	if in.ReceivedAt != nil && !in.ReceivedAt.IsZero() {
		receivedAt = *in.ReceivedAt
	}
	origin := in.Origin
	if origin == "" {
		origin = entity.BatchOriginManual
	}
	return &entity.ProductionBatch{
		ClientID:       clientID,
		BranchID:       in.BranchID,
		SupplierID:     in.SupplierID,
		Code:           strings.TrimSpace(in.Code),
		Description:    in.Description,
		ReceivedAt:     receivedAt,
		EstimatedValue: in.EstimatedValue,
		Volumes:        in.Volumes,
		Weight:         in.Weight,
		Carrier:        in.Carrier,
		Status:         entity.BatchStatusReceived,
		Origin:         origin,
		CreatedAt:      now,
	}
}

func newProduct(b *entity.ProductionBatch, in dto.BatchProductInput, now time.Time) *entity.ProductionProduct {
	return &entity.ProductionProduct{
		BatchID:     b.ID,
		ClientID:    b.ClientID,
		Code:        strings.TrimSpace(in.Code),
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Unit:        in.Unit,
		Weight:      in.Weight,
		Status:      entity.ProductStatusPending,
		CreatedAt:   now,
	}
}
