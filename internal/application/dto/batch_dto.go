package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateBatchRequest alta de un lote con sus productos. Campos numéricos omitidos valen cero.
type CreateBatchRequest struct {
	BranchID       int64                `json:"branchId"`
	SupplierID     *int64               `json:"supplierId,omitempty"`
	Code           string               `json:"code"`
	Description    string               `json:"description"`
	ReceivedAt     *time.Time           `json:"receivedAt,omitempty"`
	EstimatedValue decimal.Decimal      `json:"estimatedValue"`
	Volumes        int                  `json:"volumes"`
	Weight         decimal.Decimal      `json:"weight"`
	Carrier        string               `json:"carrier"`
	Origin         string               `json:"-"`
	Products       []BatchProductInput  `json:"products"`
	FiscalDocument *FiscalDocumentInput `json:"fiscalDocument,omitempty"`
}

// BatchProductInput ítem del lote.
type BatchProductInput struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Unit        string          `json:"unit"`
	Weight      decimal.Decimal `json:"weight"`
}

// FiscalDocumentInput NFe que acompaña al lote; se persiste después del commit.
type FiscalDocumentInput struct {
	AccessKey    string          `json:"accessKey"`
	Number       string          `json:"number"`
	Series       string          `json:"series"`
	IssuedAt     time.Time       `json:"issuedAt"`
	TotalInvoice decimal.Decimal `json:"totalInvoice"`
	RawXML       string          `json:"rawXml,omitempty"`
}

// CreateBatchResponse id del lote creado.
type CreateBatchResponse struct {
	ID int64 `json:"id"`
}
