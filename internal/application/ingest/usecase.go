// Package ingest orquesta la importación de NFe desde el buzón del cliente:
// búsqueda, deduplicación por ledger, parse, mapeo y alta del lote.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
	"github.com/jhoicas/Producao-api/internal/infrastructure/mailbox"
	"github.com/jhoicas/Producao-api/internal/infrastructure/mailparse"
	"github.com/jhoicas/Producao-api/internal/infrastructure/nfe"
	"github.com/jhoicas/Producao-api/pkg/logger"
	pkgnfe "github.com/jhoicas/Producao-api/pkg/nfe"
)

// Options dependencias opcionales del caso de uso.
type Options struct {
	DefaultParseTimeout time.Duration  // si la config del buzón no define uno; 0 = sin límite
	Secrets             PasswordOpener // nil = contraseñas en claro
	AutoSync            BatchSyncer    // nil = sin sincronización automática
}

// ImportUseCase importa NFe de los buzones de un cliente.
type ImportUseCase struct {
	configs             repository.ImapConfigRepository
	ledger              repository.ImportLedgerRepository
	dialer              MailboxDialer
	resolver            *Resolver
	batches             BatchCreator
	secrets             PasswordOpener
	syncer              BatchSyncer
	defaultParseTimeout time.Duration
	log                 *logger.Logger
	now                 func() time.Time

	locks sync.Map // config id → *sync.Mutex
}

// NewImportUseCase construye el caso de uso.
func NewImportUseCase(
	configs repository.ImapConfigRepository,
	ledger repository.ImportLedgerRepository,
	dialer MailboxDialer,
	resolver *Resolver,
	batches BatchCreator,
	log *logger.Logger,
	opts Options,
) *ImportUseCase {
	return &ImportUseCase{
		configs:             configs,
		ledger:              ledger,
		dialer:              dialer,
		resolver:            resolver,
		batches:             batches,
		secrets:             opts.Secrets,
		syncer:              opts.AutoSync,
		defaultParseTimeout: opts.DefaultParseTimeout,
		log:                 log.WithComponent("nfe_import"),
		now:                 time.Now,
	}
}

// ImportForConfig ejecuta una corrida sobre la configuración indicada del cliente.
// Un fallo de conexión al buzón aborta la corrida y se devuelve.
func (uc *ImportUseCase) ImportForConfig(ctx context.Context, clientID, configID int64) (*dto.ImportSummary, error) {
	cfg, err := uc.configs.GetByID(ctx, clientID, configID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}
	return uc.run(ctx, cfg)
}

// ImportAllActive recorre en secuencia las configuraciones activas del cliente.
// Los errores por configuración quedan en el detalle; solo falla si no se pueden listar.
func (uc *ImportUseCase) ImportAllActive(ctx context.Context, clientID int64) (*dto.ImportAllSummary, error) {
	cfgs, err := uc.configs.ListActiveByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := &dto.ImportAllSummary{Configs: len(cfgs), Detalhes: make([]dto.ConfigImportResult, 0, len(cfgs))}
	for _, cfg := range cfgs {
		detail := dto.ConfigImportResult{ConfigID: cfg.ID}
		s, err := uc.run(ctx, cfg)
		if err != nil {
			detail.Error = err.Error()
		} else {
			detail.Summary = s
			out.Totais.Add(*s)
		}
		out.Detalhes = append(out.Detalhes, detail)
	}
	return out, nil
}

func (uc *ImportUseCase) lockFor(configID int64) *sync.Mutex {
	v, _ := uc.locks.LoadOrStore(configID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (uc *ImportUseCase) run(ctx context.Context, cfg *entity.ImapConfig) (*dto.ImportSummary, error) {
	mu := uc.lockFor(cfg.ID)
	mu.Lock()
	defer mu.Unlock()

	log := uc.log.WithMailbox(cfg.ClientID, cfg.ID)
	started := uc.now()

	password, err := uc.password(cfg)
	if err != nil {
		return nil, err
	}
	sess, err := uc.dialer.Dial(ctx, mailbox.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		UseTLS:   cfg.UseTLS,
		Username: cfg.Username,
		Password: password,
		Mailbox:  cfg.MailboxName(),
		ReadOnly: !cfg.MarkSeen,
	})
	if err != nil {
		log.Error().Err(err).Msg("no se pudo conectar al buzón")
		return nil, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debug().Err(err).Msg("logout imap")
		}
	}()

	uids, err := sess.Search(ctx, mailbox.BuildCriteria(cfg, started))
	if err != nil {
		return nil, err
	}

	summary := &dto.ImportSummary{TotalMensagens: len(uids)}
	var examined []uint32
	err = sess.Fetch(ctx, uids, func(raw mailbox.RawMessage) error {
		summary.Processadas++
		uc.processMessage(ctx, cfg, raw, summary, log)
		examined = append(examined, raw.UID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cfg.MarkSeen && len(examined) > 0 {
		if err := sess.MarkSeen(ctx, examined); err != nil {
			log.Warn().Err(err).Int("uids", len(examined)).Msg("no se pudieron marcar como leídos")
		}
	}

	log.Info().
		Int("total", summary.TotalMensagens).
		Int("novas", summary.Novas).
		Int("duplicadas", summary.Duplicadas).
		Int("sem_xml", summary.SemXML).
		Int("erros", summary.Erros).
		Dur("elapsed", uc.now().Sub(started)).
		Msg("importación finalizada")
	return summary, nil
}

func (uc *ImportUseCase) password(cfg *entity.ImapConfig) (string, error) {
	if !cfg.StorePassword || uc.secrets == nil {
		return cfg.Password, nil
	}
	plain, err := uc.secrets.Open(cfg.Password)
	if err != nil {
		return "", fmt.Errorf("descifrar credencial imap %d: %w", cfg.ID, err)
	}
	return plain, nil
}

// parseTimeout límite del buzón; si no define uno, el global (cero = sin límite).
func (uc *ImportUseCase) parseTimeout(cfg *entity.ImapConfig) time.Duration {
	if t := cfg.ParseTimeout(); t > 0 {
		return t
	}
	return uc.defaultParseTimeout
}

// processMessage procesa un mensaje y actualiza los contadores. Nunca aborta la corrida.
func (uc *ImportUseCase) processMessage(ctx context.Context, cfg *entity.ImapConfig, raw mailbox.RawMessage, summary *dto.ImportSummary, log *logger.Logger) {
	mlog := log.Zerolog().With().Str("message_id", raw.MessageID).Uint32("uid", raw.UID).Logger()

	exists, err := uc.ledger.Exists(ctx, cfg.ClientID, raw.MessageID)
	if err != nil {
		mlog.Error().Err(err).Msg("consulta al ledger")
		summary.Erros++
		return
	}
	if exists {
		summary.Duplicadas++
		return
	}

	now := uc.now()
	entry := &entity.ImportLedgerEntry{
		ClientID:   cfg.ClientID,
		ConfigID:   cfg.ID,
		MessageID:  raw.MessageID,
		UID:        raw.UID,
		Subject:    raw.Subject,
		Sender:     raw.From,
		ReceivedAt: raw.EnvelopeDate,
		CreatedAt:  now,
	}

	var parsed *mailparse.ParsedMessage
	err = raw.Err
	if err == nil {
		parsed, err = mailparse.Parse(ctx, raw.Body, mailparse.Options{
			Timeout:      uc.parseTimeout(cfg),
			EnvelopeDate: raw.EnvelopeDate,
		})
	}
	if err != nil {
		mlog.Warn().Err(err).Msg("mensaje ilegible")
		msg := err.Error()
		entry.Status, entry.ErrorText = entity.LedgerError, &msg
		if entry.ReceivedAt.IsZero() {
			entry.ReceivedAt = now
		}
		if uc.record(ctx, entry, summary, mlog) {
			summary.Erros++
		}
		return
	}
	fillFromParsed(entry, parsed, now)

	att, ok := parsed.FiscalXML()
	if !ok {
		entry.Status = entity.LedgerNoXML
		if uc.record(ctx, entry, summary, mlog) {
			summary.Novas++
			summary.SemXML++
		}
		return
	}

	sum := sha256.Sum256(att.Data)
	xml := string(att.Data)
	entry.Status = entity.LedgerImported
	entry.ContentHash = hex.EncodeToString(sum[:])
	entry.RawXML = &xml
	if !uc.record(ctx, entry, summary, mlog) {
		return
	}
	summary.Novas++

	batchID, err := uc.ingest(ctx, cfg.ClientID, att.Data, mlog)
	if err != nil {
		summary.Erros++
		msg := err.Error()
		mlog.Warn().Err(err).Str("filename", att.Filename).Msg("NFe no convertida en lote")
		if err := uc.ledger.MarkParsed(ctx, entry.ID, entity.LedgerParsedError, &msg, nil, uc.now()); err != nil {
			mlog.Error().Err(err).Msg("no se pudo marcar parsed_error en el ledger")
		}
		return
	}

	summary.Lotes = append(summary.Lotes, batchID)
	if err := uc.ledger.MarkParsed(ctx, entry.ID, entity.LedgerParsedOK, nil, &batchID, uc.now()); err != nil {
		mlog.Error().Err(err).Int64("batch_id", batchID).Msg("no se pudo marcar parsed_ok en el ledger")
	}
	mlog.Info().Int64("batch_id", batchID).Msg("NFe importada")

	uc.autoSync(ctx, cfg.ClientID, batchID, log)
}

// record inserta la entrada del ledger. false si no quedó registrada (duplicado por carrera o error de BD).
func (uc *ImportUseCase) record(ctx context.Context, entry *entity.ImportLedgerEntry, summary *dto.ImportSummary, mlog zerolog.Logger) bool {
	err := uc.ledger.Create(ctx, entry)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrDuplicate):
		summary.Duplicadas++
	default:
		mlog.Error().Err(err).Str("status", string(entry.Status)).Msg("no se pudo registrar en el ledger")
		summary.Erros++
	}
	return false
}

// ingest XML → documento normalizado → entidades resueltas → lote.
func (uc *ImportUseCase) ingest(ctx context.Context, clientID int64, xmlBytes []byte, mlog zerolog.Logger) (int64, error) {
	doc, err := nfe.Parse(xmlBytes)
	if err != nil {
		return 0, err
	}
	// el emisor se busca por documento igual; un dígito verificador inválido solo se registra
	if err := pkgnfe.ValidateTaxID(doc.IssuerTaxID); err != nil {
		mlog.Warn().Err(err).Str("issuer", doc.IssuerTaxID).Msg("documento del emisor no válido")
	}
	res, err := uc.resolver.Resolve(ctx, doc)
	if err != nil {
		return 0, err
	}
	// el buzón de un cliente no puede generar lotes para otro
	if res.Client.ID != clientID {
		return 0, &domain.MappingError{
			Reason: domain.ReasonClientNotFound,
			Detail: fmt.Sprintf("el destinatario pertenece al cliente %d", res.Client.ID),
		}
	}
	return uc.batches.CreateBatch(ctx, clientID, ToBatchRequest(doc, res, string(xmlBytes)))
}

func (uc *ImportUseCase) autoSync(ctx context.Context, clientID, batchID int64, log *logger.Logger) {
	if uc.syncer == nil {
		return
	}
	s, err := uc.syncer.SyncBatch(ctx, clientID, batchID, 0)
	if err != nil {
		log.Warn().Err(err).Int64("batch_id", batchID).Msg("sincronización automática con ERP falló")
		return
	}
	log.Info().Int64("batch_id", batchID).Int("synced", s.Synced).Int("failed", s.Failed).Msg("lote sincronizado con ERP")
}

func fillFromParsed(entry *entity.ImportLedgerEntry, parsed *mailparse.ParsedMessage, now time.Time) {
	if entry.Subject == "" {
		entry.Subject = parsed.Subject
	}
	if entry.Sender == "" {
		entry.Sender = parsed.From
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = parsed.Date
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = now
	}
}
