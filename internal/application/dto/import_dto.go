package dto

import "time"

// ImportSummary contadores de una corrida de importación sobre un buzón.
type ImportSummary struct {
	TotalMensagens int     `json:"totalMensagens"`
	Processadas    int     `json:"processadas"`
	Novas          int     `json:"novas"`
	Duplicadas     int     `json:"duplicadas"`
	SemXML         int     `json:"semXml"`
	Erros          int     `json:"erros"`
	Lotes          []int64 `json:"lotes,omitempty"`
}

// Add acumula otro resumen (totales de "importar todos").
func (s *ImportSummary) Add(o ImportSummary) {
	s.TotalMensagens += o.TotalMensagens
	s.Processadas += o.Processadas
	s.Novas += o.Novas
	s.Duplicadas += o.Duplicadas
	s.SemXML += o.SemXML
	s.Erros += o.Erros
	s.Lotes = append(s.Lotes, o.Lotes...)
}

// ConfigImportResult resultado por configuración: Summary o Error, nunca ambos.
type ConfigImportResult struct {
	ConfigID int64          `json:"configId"`
	Summary  *ImportSummary `json:"summary,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ImportAllSummary respuesta de importar todas las configuraciones activas del cliente.
type ImportAllSummary struct {
	Configs  int                  `json:"configs"`
	Totais   ImportSummary        `json:"totais"`
	Detalhes []ConfigImportResult `json:"detalhes"`
}

// LedgerEntryResponse fila del ledger para auditoría (sin el XML crudo).
type LedgerEntryResponse struct {
	ID          int64      `json:"id"`
	ConfigID    int64      `json:"configId"`
	MessageID   string     `json:"messageId"`
	UID         uint32     `json:"uid"`
	Subject     string     `json:"subject"`
	Sender      string     `json:"sender"`
	ReceivedAt  time.Time  `json:"receivedAt"`
	Status      string     `json:"status"`
	ErrorText   *string    `json:"errorText,omitempty"`
	ContentHash string     `json:"contentHash,omitempty"`
	ParsedAt    *time.Time `json:"parsedAt,omitempty"`
	BatchID     *int64     `json:"batchId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LedgerListResponse listado paginado del ledger.
type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}
