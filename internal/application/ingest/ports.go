package ingest

import (
	"context"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/infrastructure/mailbox"
)

// MailboxSession operaciones de una sesión IMAP abierta (implementado por *mailbox.Session).
type MailboxSession interface {
	Search(ctx context.Context, cr mailbox.Criteria) ([]uint32, error)
	Fetch(ctx context.Context, uids []uint32, fn func(mailbox.RawMessage) error) error
	MarkSeen(ctx context.Context, uids []uint32) error
	Close() error
}

// MailboxDialer abre sesiones contra el buzón configurado.
type MailboxDialer interface {
	Dial(ctx context.Context, cfg mailbox.Config) (MailboxSession, error)
}

// BatchCreator alta de lotes (implementado por *batch.UseCase).
type BatchCreator interface {
	CreateBatch(ctx context.Context, clientID int64, in dto.CreateBatchRequest) (int64, error)
}

// BatchSyncer publicación de un lote en el ERP (implementado por *erpsync.SyncUseCase).
type BatchSyncer interface {
	SyncBatch(ctx context.Context, clientID, batchID int64, concurrency int) (*dto.ERPSyncSummary, error)
}

// PasswordOpener descifra la contraseña guardada (implementado por *secret.Box).
type PasswordOpener interface {
	Open(sealed string) (string, error)
}

// IMAPDialer adapta *mailbox.Dialer al puerto MailboxDialer.
type IMAPDialer struct {
	D *mailbox.Dialer
}

// Dial abre la sesión IMAP real.
func (d IMAPDialer) Dial(ctx context.Context, cfg mailbox.Config) (MailboxSession, error) {
	s, err := d.D.Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
