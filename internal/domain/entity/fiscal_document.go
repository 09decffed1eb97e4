package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// NormalizedFiscalDocument vista efímera de una NFe parseada. No se persiste como entidad propia.
type NormalizedFiscalDocument struct {
	AccessKey      string
	Number         string
	Series         string
	IssuedAt       time.Time
	IssuerTaxID    string
	IssuerName     string
	RecipientTaxID string
	RecipientName  string
	TotalProducts  decimal.Decimal
	TotalFreight   decimal.Decimal
	TotalTaxes     decimal.Decimal
	TotalInvoice   decimal.Decimal // vNF
	CarrierName    string
	Volumes        int
	GrossWeight    decimal.Decimal
	NetWeight      decimal.Decimal
	Items          []FiscalItem
}

// FiscalItem línea (det/prod) de la NFe.
type FiscalItem struct {
	Code        string
	Description string
	NCM         string
	CFOP        string
	Unit        string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Total       decimal.Decimal
}
