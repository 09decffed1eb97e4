package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Orígenes de un lote.
const (
	BatchOriginManual = "manual"
	BatchOriginNFe    = "nfe"
)

// Estados iniciales.
const (
	BatchStatusReceived  = "recebido"
	ProductStatusPending = "pendente"
)

// ProductionBatch lote de producción (recepción de mercadería). Es dueño de sus productos.
type ProductionBatch struct {
	ID             int64
	ClientID       int64
	BranchID       int64
	SupplierID     *int64
	Code           string
	Description    string
	ReceivedAt     time.Time
	EstimatedValue decimal.Decimal
	Volumes        int
	Weight         decimal.Decimal
	Carrier        string
	Status         string
	Origin         string
	CreatedAt      time.Time
}

// ProductionProduct ítem de un lote. RemoteERPID nil = no sincronizado (o falló).
type ProductionProduct struct {
	ID           int64
	BatchID      int64
	ClientID     int64
	Code         string
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Unit         string
	Weight       decimal.Decimal
	Status       string
	RemoteERPID  *int64
	ERPSyncError *string
	ERPSyncedAt  *time.Time
	CreatedAt    time.Time
}

// FiscalDocumentLink NFe asociada a un lote.
type FiscalDocumentLink struct {
	ID           int64
	BatchID      int64
	AccessKey    string
	Number       string
	Series       string
	IssuedAt     time.Time
	TotalInvoice decimal.Decimal
	RawXML       string
	CreatedAt    time.Time
}
