package ingest

import (
	"context"
	"fmt"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
	"github.com/jhoicas/Producao-api/pkg/nfe"
)

// Resolution entidades locales a las que apunta una NFe.
type Resolution struct {
	Client   *entity.Client
	Branch   *entity.Branch
	Supplier *entity.Supplier
}

// Resolver traduce los documentos fiscales de la NFe a cliente, filial y proveedor.
type Resolver struct {
	clients   repository.ClientRepository
	branches  repository.BranchRepository
	suppliers repository.SupplierRepository
}

// NewResolver construye el resolver.
func NewResolver(clients repository.ClientRepository, branches repository.BranchRepository, suppliers repository.SupplierRepository) *Resolver {
	return &Resolver{clients: clients, branches: branches, suppliers: suppliers}
}

// Resolve destinatario → cliente, cliente → primera filial, emisor → proveedor del cliente.
// Cualquier faltante (o una NFe sin ítems) es *domain.MappingError; errores de BD se devuelven tal cual.
func (r *Resolver) Resolve(ctx context.Context, doc *entity.NormalizedFiscalDocument) (*Resolution, error) {
	if len(doc.Items) == 0 {
		return nil, &domain.MappingError{Reason: domain.ReasonNoItems, Detail: doc.AccessKey}
	}

	recipient := nfe.NormalizeTaxID(doc.RecipientTaxID)
	if recipient == "" {
		return nil, &domain.MappingError{Reason: domain.ReasonClientNotFound, Detail: "destinatario sin CNPJ/CPF"}
	}
	client, err := r.clients.GetByTaxID(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("resolve client: %w", err)
	}
	if client == nil {
		return nil, &domain.MappingError{Reason: domain.ReasonClientNotFound, Detail: recipient}
	}

	branch, err := r.branches.FirstByClient(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve branch: %w", err)
	}
	if branch == nil {
		return nil, &domain.MappingError{Reason: domain.ReasonBranchNotFound, Detail: fmt.Sprintf("cliente %d", client.ID)}
	}

	issuer := nfe.NormalizeTaxID(doc.IssuerTaxID)
	supplier, err := r.suppliers.GetByClientAndTaxID(ctx, client.ID, issuer)
	if err != nil {
		return nil, fmt.Errorf("resolve supplier: %w", err)
	}
	if supplier == nil {
		return nil, &domain.MappingError{Reason: domain.ReasonSupplierMissing, Detail: issuer}
	}

	return &Resolution{Client: client, Branch: branch, Supplier: supplier}, nil
}

// ToBatchRequest arma el alta del lote: código = chave de acesso, valor estimado = vNF, un producto por ítem.
func ToBatchRequest(doc *entity.NormalizedFiscalDocument, res *Resolution, rawXML string) dto.CreateBatchRequest {
	supplierID := res.Supplier.ID
	weight := doc.GrossWeight
	if weight.IsZero() {
		weight = doc.NetWeight
	}
	req := dto.CreateBatchRequest{
		BranchID:       res.Branch.ID,
		SupplierID:     &supplierID,
		Code:           doc.AccessKey,
		Description:    description(doc),
		EstimatedValue: doc.TotalInvoice,
		Volumes:        doc.Volumes,
		Weight:         weight,
		Carrier:        doc.CarrierName,
		Origin:         entity.BatchOriginNFe,
		Products:       make([]dto.BatchProductInput, 0, len(doc.Items)),
		FiscalDocument: &dto.FiscalDocumentInput{
			AccessKey:    doc.AccessKey,
			Number:       doc.Number,
			Series:       doc.Series,
			IssuedAt:     doc.IssuedAt,
			TotalInvoice: doc.TotalInvoice,
			RawXML:       rawXML,
		},
	}
	if !doc.IssuedAt.IsZero() {
		issued := doc.IssuedAt
		req.ReceivedAt = &issued
	}
	for _, it := range doc.Items {
		req.Products = append(req.Products, dto.BatchProductInput{
			Code:        it.Code,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Unit:        it.Unit,
		})
	}
	return req
}

func description(doc *entity.NormalizedFiscalDocument) string {
	d := "NF-e " + doc.Number
	if doc.Series != "" {
		d += "/" + doc.Series
	}
	if doc.IssuerName != "" {
		d += " - " + doc.IssuerName
	}
	return d
}
