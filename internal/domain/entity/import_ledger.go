package entity

import "time"

// LedgerStatus estado de procesamiento de un mensaje de origen.
type LedgerStatus string

const (
	LedgerNoXML       LedgerStatus = "no_xml"
	LedgerImported    LedgerStatus = "imported"
	LedgerParsedOK    LedgerStatus = "parsed_ok"
	LedgerParsedError LedgerStatus = "parsed_error"
	LedgerError       LedgerStatus = "error"
)

// CanTransition solo imported avanza, y solo hacia un resultado de parse.
func (s LedgerStatus) CanTransition(to LedgerStatus) bool {
	return s == LedgerImported && (to == LedgerParsedOK || to == LedgerParsedError)
}

// ImportLedgerEntry registro append-only de cada mensaje visto por cliente.
// (ClientID, MessageID) es único: es el ancla de deduplicación.
type ImportLedgerEntry struct {
	ID          int64
	ClientID    int64
	ConfigID    int64
	MessageID   string
	UID         uint32
	Subject     string
	Sender      string
	ReceivedAt  time.Time
	Status      LedgerStatus
	ErrorText   *string
	ContentHash string
	RawXML      *string
	ParsedAt    *time.Time
	BatchID     *int64
	CreatedAt   time.Time
}
