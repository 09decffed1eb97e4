package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
)

var _ repository.ImportLedgerRepository = (*ImportLedgerRepo)(nil)

// ImportLedgerRepo ledger de importación sobre PostgreSQL. La unicidad (client_id, message_id) la garantiza la BD.
type ImportLedgerRepo struct {
	q Querier
}

// NewImportLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewImportLedgerRepository(q Querier) *ImportLedgerRepo {
	return &ImportLedgerRepo{q: q}
}

// Exists indica si el mensaje ya figura en el ledger del cliente.
func (r *ImportLedgerRepo) Exists(ctx context.Context, clientID int64, messageID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM nfe_import_ledger WHERE client_id = $1 AND message_id = $2)`,
		clientID, messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ledger exists: %w", err)
	}
	return exists, nil
}

// Create inserta la entrada. Si (client_id, message_id) ya existe devuelve *domain.DuplicateError
// (errors.Is(err, domain.ErrDuplicate) se cumple).
func (r *ImportLedgerRepo) Create(ctx context.Context, e *entity.ImportLedgerEntry) error {
	query := `
		INSERT INTO nfe_import_ledger (client_id, config_id, message_id, uid, subject, sender, received_at,
			status, error_text, content_hash, raw_xml, parsed_at, batch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14)
		ON CONFLICT (client_id, message_id) DO NOTHING
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		e.ClientID, e.ConfigID, e.MessageID, int64(e.UID), e.Subject, e.Sender, e.ReceivedAt,
		string(e.Status), e.ErrorText, e.ContentHash, e.RawXML, e.ParsedAt, e.BatchID, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return &domain.DuplicateError{MessageID: e.MessageID}
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// MarkParsed solo avanza entradas en estado imported; cualquier otra fila queda intacta (domain.ErrConflict).
func (r *ImportLedgerRepo) MarkParsed(ctx context.Context, id int64, status entity.LedgerStatus, errText *string, batchID *int64, parsedAt time.Time) error {
	if !entity.LedgerImported.CanTransition(status) {
		return fmt.Errorf("ledger: transición inválida a %s: %w", status, domain.ErrInvalidInput)
	}
	cmd, err := r.q.Exec(ctx, `
		UPDATE nfe_import_ledger
		SET status = $2, error_text = $3, batch_id = $4, parsed_at = $5
		WHERE id = $1 AND status = $6`,
		id, string(status), errText, batchID, parsedAt, string(entity.LedgerImported),
	)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// List entradas del cliente, más recientes primero. Sin el XML crudo.
func (r *ImportLedgerRepo) List(ctx context.Context, clientID int64, f repository.LedgerFilter) ([]*entity.ImportLedgerEntry, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	query := `
		SELECT id, client_id, config_id, message_id, uid, subject, sender, received_at, status,
			error_text, COALESCE(content_hash, ''), parsed_at, batch_id, created_at
		FROM nfe_import_ledger
		WHERE client_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, clientID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var list []*entity.ImportLedgerEntry
	for rows.Next() {
		var (
			e      entity.ImportLedgerEntry
			uid    int64
			status string
		)
		if err := rows.Scan(&e.ID, &e.ClientID, &e.ConfigID, &e.MessageID, &uid, &e.Subject, &e.Sender,
			&e.ReceivedAt, &status, &e.ErrorText, &e.ContentHash, &e.ParsedAt, &e.BatchID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		e.UID = uint32(uid)
		e.Status = entity.LedgerStatus(status)
		list = append(list, &e)
	}
	return list, rows.Err()
}
