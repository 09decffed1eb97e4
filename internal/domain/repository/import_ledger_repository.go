package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Producao-api/internal/domain/entity"
)

// LedgerFilter filtros para listar el ledger (auditoría).
type LedgerFilter struct {
	Status entity.LedgerStatus
	Limit  int
	Offset int
}

// ImportLedgerRepository puerto del ledger de importación (fuente de verdad de deduplicación).
type ImportLedgerRepository interface {
	// Exists indica si el mensaje ya fue visto para el cliente.
	Exists(ctx context.Context, clientID int64, messageID string) (bool, error)
	// Create inserta la entrada; devuelve domain.ErrDuplicate si (client_id, message_id) ya existe.
	Create(ctx context.Context, entry *entity.ImportLedgerEntry) error
	// MarkParsed mueve una entrada imported a parsed_ok/parsed_error.
	MarkParsed(ctx context.Context, id int64, status entity.LedgerStatus, errText *string, batchID *int64, parsedAt time.Time) error
	List(ctx context.Context, clientID int64, f LedgerFilter) ([]*entity.ImportLedgerEntry, error)
}
