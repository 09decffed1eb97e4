package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
)

var _ repository.ImapConfigRepository = (*ImapConfigRepo)(nil)

// ImapConfigRepo configuraciones de buzón sobre PostgreSQL.
type ImapConfigRepo struct {
	q Querier
}

// NewImapConfigRepository construye el adaptador. Pasar pool o tx (Querier).
func NewImapConfigRepository(q Querier) *ImapConfigRepo {
	return &ImapConfigRepo{q: q}
}

const imapConfigColumns = `id, client_id, host, port, use_tls, username, password, mailbox, since_days,
	unseen_only, mark_seen, from_filter, subject_filter, max_results, parse_timeout_ms,
	store_password, active, created_at, updated_at`

func scanImapConfig(row pgx.Row) (*entity.ImapConfig, error) {
	var c entity.ImapConfig
	err := row.Scan(&c.ID, &c.ClientID, &c.Host, &c.Port, &c.UseTLS, &c.Username, &c.Password, &c.Mailbox,
		&c.SinceDays, &c.UnseenOnly, &c.MarkSeen, &c.FromFilter, &c.SubjectFilter, &c.MaxResults,
		&c.ParseTimeoutMs, &c.StorePassword, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID obtiene la configuración del cliente. (nil, nil) si no existe.
func (r *ImapConfigRepo) GetByID(ctx context.Context, clientID, id int64) (*entity.ImapConfig, error) {
	query := `SELECT ` + imapConfigColumns + ` FROM imap_configs WHERE client_id = $1 AND id = $2`
	c, err := scanImapConfig(r.q.QueryRow(ctx, query, clientID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get imap config: %w", err)
	}
	return c, nil
}

// ListActiveByClient lista las configuraciones activas del cliente ordenadas por id.
func (r *ImapConfigRepo) ListActiveByClient(ctx context.Context, clientID int64) ([]*entity.ImapConfig, error) {
	query := `SELECT ` + imapConfigColumns + ` FROM imap_configs WHERE client_id = $1 AND active ORDER BY id`
	rows, err := r.q.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("list imap configs: %w", err)
	}
	defer rows.Close()
	var list []*entity.ImapConfig
	for rows.Next() {
		c, err := scanImapConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan imap config: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// SetActive activa id y desactiva sus hermanas en una transacción
// (el índice parcial uq_imap_configs_active se verifica fila a fila).
func (r *ImapConfigRepo) SetActive(ctx context.Context, clientID, id int64) error {
	return pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM imap_configs WHERE client_id = $1 AND id = $2)`, clientID, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("get imap config: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`UPDATE imap_configs SET active = FALSE, updated_at = now() WHERE client_id = $1 AND active AND id <> $2`,
			clientID, id,
		); err != nil {
			return fmt.Errorf("deactivate imap configs: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE imap_configs SET active = TRUE, updated_at = now() WHERE id = $1`, id,
		); err != nil {
			return fmt.Errorf("activate imap config: %w", err)
		}
		return nil
	})
}
