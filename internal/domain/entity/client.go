package entity

import "time"

// Client cliente (tenant) dueño de buzones, filiales y proveedores.
type Client struct {
	ID        int64
	Name      string
	TaxID     string // CNPJ/CPF solo dígitos
	Active    bool
	CreatedAt time.Time
}

// Branch filial de un cliente donde se reciben los lotes.
type Branch struct {
	ID       int64
	ClientID int64
	Name     string
	TaxID    string
}

// Supplier proveedor que emite la NFe, siempre en el ámbito de un cliente.
type Supplier struct {
	ID       int64
	ClientID int64
	Name     string
	TaxID    string
}
