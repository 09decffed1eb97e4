package ingest_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/application/ingest"
	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
	"github.com/jhoicas/Producao-api/internal/infrastructure/mailbox"
	"github.com/jhoicas/Producao-api/pkg/logger"
)

const nfeXML = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe35260311222333000181550010000012341000012345" versao="4.00">
      <ide><serie>1</serie><nNF>1234</nNF><dhEmi>2026-03-02T10:00:00-03:00</dhEmi></ide>
      <emit><CNPJ>11.222.333/0001-81</CNPJ><xNome>Fornecedor XPTO</xNome></emit>
      <dest><CNPJ>44555666000177</CNPJ><xNome>Cliente Sete</xNome></dest>
      <det nItem="1"><prod><cProd>A-10</cProd><xProd>Parafuso</xProd><uCom>UN</uCom><qCom>10</qCom><vUnCom>5.00</vUnCom><vProd>50.00</vProd></prod></det>
      <det nItem="2"><prod><cProd>B-20</cProd><xProd>Porca</xProd><uCom>UN</uCom><qCom>2</qCom><vUnCom>15.00</vUnCom><vProd>30.00</vProd></prod></det>
      <total><ICMSTot><vProd>80.00</vProd><vFrete>12.50</vFrete><vNF>92.50</vNF></ICMSTot></total>
      <transp><transporta><xNome>Transportadora Rapida</xNome></transporta><vol><qVol>3</qVol><pesoB>16.0</pesoB></vol></transp>
    </infNFe>
  </NFe>
</nfeProc>`

func email(parts ...string) []byte {
	var b strings.Builder
	b.WriteString("From: Fornecedor XPTO <nfe@xpto.com.br>\r\n")
	b.WriteString("Subject: NF-e 1234\r\n")
	b.WriteString("Date: Mon, 02 Mar 2026 10:00:00 -0300\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"B\"\r\n\r\n")
	for _, p := range parts {
		b.WriteString("--B\r\n" + p + "\r\n")
	}
	b.WriteString("--B--\r\n")
	return []byte(b.String())
}

const bodyText = "Content-Type: text/plain; charset=utf-8\r\n\r\nSegue a nota."

func xmlPart(xml string) string {
	return "Content-Type: application/xml\r\nContent-Disposition: attachment; filename=\"nota.xml\"\r\n\r\n" + xml
}

// ---- fakes ----

type fakeSession struct {
	msgs   []mailbox.RawMessage
	seen   []uint32
	closed bool
}

func (s *fakeSession) Search(ctx context.Context, cr mailbox.Criteria) ([]uint32, error) {
	uids := make([]uint32, 0, len(s.msgs))
	for _, m := range s.msgs {
		uids = append(uids, m.UID)
	}
	return mailbox.LimitRecent(uids, cr.MaxResults), nil
}

func (s *fakeSession) Fetch(ctx context.Context, uids []uint32, fn func(mailbox.RawMessage) error) error {
	for _, uid := range uids {
		for _, m := range s.msgs {
			if m.UID == uid {
				if err := fn(m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *fakeSession) MarkSeen(ctx context.Context, uids []uint32) error {
	s.seen = append(s.seen, uids...)
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDialer struct {
	sessions map[string]*fakeSession // por host
	dialed   []mailbox.Config
}

func (d *fakeDialer) Dial(ctx context.Context, cfg mailbox.Config) (ingest.MailboxSession, error) {
	d.dialed = append(d.dialed, cfg)
	s, ok := d.sessions[cfg.Host]
	if !ok {
		return nil, &domain.ConnectionError{Host: cfg.Host, Op: "login", Err: errors.New("authentication failed")}
	}
	return s, nil
}

type fakeConfigs []*entity.ImapConfig

func (f fakeConfigs) GetByID(ctx context.Context, clientID, id int64) (*entity.ImapConfig, error) {
	for _, c := range f {
		if c.ClientID == clientID && c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f fakeConfigs) ListActiveByClient(ctx context.Context, clientID int64) ([]*entity.ImapConfig, error) {
	var out []*entity.ImapConfig
	for _, c := range f {
		if c.ClientID == clientID && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f fakeConfigs) SetActive(ctx context.Context, clientID, id int64) error { return nil }

type fakeLedger struct {
	nextID  int64
	entries map[string]*entity.ImportLedgerEntry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]*entity.ImportLedgerEntry{}}
}

func (l *fakeLedger) key(clientID int64, messageID string) string {
	return strconv.FormatInt(clientID, 10) + "|" + messageID
}

func (l *fakeLedger) Exists(ctx context.Context, clientID int64, messageID string) (bool, error) {
	_, ok := l.entries[l.key(clientID, messageID)]
	return ok, nil
}

func (l *fakeLedger) Create(ctx context.Context, e *entity.ImportLedgerEntry) error {
	k := l.key(e.ClientID, e.MessageID)
	if _, ok := l.entries[k]; ok {
		return domain.ErrDuplicate
	}
	l.nextID++
	e.ID = l.nextID
	l.entries[k] = e
	return nil
}

func (l *fakeLedger) MarkParsed(ctx context.Context, id int64, status entity.LedgerStatus, errText *string, batchID *int64, parsedAt time.Time) error {
	for _, e := range l.entries {
		if e.ID == id {
			if !e.Status.CanTransition(status) {
				return domain.ErrConflict
			}
			e.Status, e.ErrorText, e.BatchID, e.ParsedAt = status, errText, batchID, &parsedAt
			return nil
		}
	}
	return domain.ErrNotFound
}

func (l *fakeLedger) List(ctx context.Context, clientID int64, f repository.LedgerFilter) ([]*entity.ImportLedgerEntry, error) {
	return nil, nil
}

func (l *fakeLedger) byMessage(clientID int64, id string) *entity.ImportLedgerEntry {
	return l.entries[l.key(clientID, id)]
}

type fakeClients map[string]*entity.Client

func (f fakeClients) GetByTaxID(ctx context.Context, taxID string) (*entity.Client, error) {
	return f[taxID], nil
}

type fakeBranches map[int64]*entity.Branch // por cliente

func (f fakeBranches) GetByID(ctx context.Context, id int64) (*entity.Branch, error) { return nil, nil }

func (f fakeBranches) FirstByClient(ctx context.Context, clientID int64) (*entity.Branch, error) {
	return f[clientID], nil
}

type fakeSuppliers []*entity.Supplier

func (f fakeSuppliers) GetByClientAndTaxID(ctx context.Context, clientID int64, taxID string) (*entity.Supplier, error) {
	for _, s := range f {
		if s.ClientID == clientID && s.TaxID == taxID {
			return s, nil
		}
	}
	return nil, nil
}

type fakeBatches struct {
	reqs []dto.CreateBatchRequest
}

func (f *fakeBatches) CreateBatch(ctx context.Context, clientID int64, in dto.CreateBatchRequest) (int64, error) {
	f.reqs = append(f.reqs, in)
	return int64(100 + len(f.reqs)), nil
}

type fakeSyncer struct {
	batches []int64
	err     error
}

func (f *fakeSyncer) SyncBatch(ctx context.Context, clientID, batchID int64, concurrency int) (*dto.ERPSyncSummary, error) {
	f.batches = append(f.batches, batchID)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ERPSyncSummary{Total: 2, Synced: 2}, nil
}

// ---- harness ----

type harness struct {
	uc      *ingest.ImportUseCase
	configs fakeConfigs
	dialer  *fakeDialer
	session *fakeSession
	ledger  *fakeLedger
	batches *fakeBatches
}

func newHarness(t *testing.T, msgs []mailbox.RawMessage, opts ingest.Options) *harness {
	t.Helper()
	session := &fakeSession{msgs: msgs}
	h := &harness{
		dialer:  &fakeDialer{sessions: map[string]*fakeSession{"imap.cliente7.com.br": session}},
		session: session,
		ledger:  newFakeLedger(),
		batches: &fakeBatches{},
	}
	h.configs = fakeConfigs{
		{ID: 1, ClientID: 7, Host: "imap.cliente7.com.br", Port: 993, UseTLS: true, MarkSeen: true, Active: true},
		{ID: 2, ClientID: 7, Host: "imap.caido.com.br", Port: 993, Active: true},
	}
	resolver := ingest.NewResolver(
		fakeClients{"44555666000177": {ID: 7, Name: "Cliente Sete", TaxID: "44555666000177"}},
		fakeBranches{7: {ID: 3, ClientID: 7, Name: "Matriz"}},
		fakeSuppliers{{ID: 42, ClientID: 7, TaxID: "11222333000181"}},
	)
	h.uc = ingest.NewImportUseCase(h.configs, h.ledger, h.dialer, resolver, h.batches, logger.Nop(), opts)
	return h
}

func msg(uid uint32, id string, body []byte) mailbox.RawMessage {
	return mailbox.RawMessage{UID: uid, MessageID: id, Subject: "NF-e", From: "nfe@xpto.com.br", Body: body}
}

// ---- tests ----

func TestImportForConfig_CreaLoteDesdeNFe(t *testing.T) {
	h := newHarness(t, []mailbox.RawMessage{msg(10, "<a@xpto>", email(bodyText, xmlPart(nfeXML)))}, ingest.Options{})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, dto.ImportSummary{TotalMensagens: 1, Processadas: 1, Novas: 1, Lotes: []int64{101}}, *s)

	require.Len(t, h.batches.reqs, 1)
	req := h.batches.reqs[0]
	assert.Equal(t, int64(3), req.BranchID)
	require.NotNil(t, req.SupplierID)
	assert.Equal(t, int64(42), *req.SupplierID)
	assert.Equal(t, entity.BatchOriginNFe, req.Origin)
	assert.Equal(t, "35260311222333000181550010000012341000012345", req.Code)
	assert.True(t, decimal.RequireFromString("92.50").Equal(req.EstimatedValue))
	assert.Equal(t, 3, req.Volumes)
	assert.Equal(t, "Transportadora Rapida", req.Carrier)
	require.Len(t, req.Products, 2)
	assert.True(t, decimal.NewFromInt(10).Equal(req.Products[0].Quantity))
	assert.True(t, decimal.NewFromInt(15).Equal(req.Products[1].UnitPrice))
	require.NotNil(t, req.FiscalDocument)
	assert.Equal(t, "1234", req.FiscalDocument.Number)

	e := h.ledger.byMessage(7, "<a@xpto>")
	require.NotNil(t, e)
	assert.Equal(t, entity.LedgerParsedOK, e.Status)
	require.NotNil(t, e.BatchID)
	assert.Equal(t, int64(101), *e.BatchID)
	assert.Len(t, e.ContentHash, 64)
	require.NotNil(t, e.RawXML)
	assert.Contains(t, *e.RawXML, "infNFe")

	assert.Equal(t, []uint32{10}, h.session.seen)
	assert.True(t, h.session.closed)
	assert.False(t, h.dialer.dialed[0].ReadOnly)
}

func TestImportForConfig_DuplicadoNoSeReprocesa(t *testing.T) {
	h := newHarness(t, []mailbox.RawMessage{msg(10, "<a@xpto>", email(xmlPart(nfeXML)))}, ingest.Options{})

	_, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)
	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Duplicadas)
	assert.Equal(t, 0, s.Novas)
	assert.Equal(t, 1, s.Processadas)
	assert.Len(t, h.batches.reqs, 1)
}

func TestImportForConfig_SinXML(t *testing.T) {
	h := newHarness(t, []mailbox.RawMessage{msg(11, "<b@xpto>", email(bodyText))}, ingest.Options{})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, s.SemXML)
	assert.Equal(t, 1, s.Novas)
	assert.Equal(t, 0, s.Erros)
	e := h.ledger.byMessage(7, "<b@xpto>")
	require.NotNil(t, e)
	assert.Equal(t, entity.LedgerNoXML, e.Status)
	assert.Nil(t, e.RawXML)
	assert.Empty(t, h.batches.reqs)
}

func TestImportForConfig_DestinatarioDesconocido(t *testing.T) {
	other := strings.Replace(nfeXML, "44555666000177", "99888777000166", 1)
	h := newHarness(t, []mailbox.RawMessage{msg(12, "<c@xpto>", email(xmlPart(other)))}, ingest.Options{})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Novas)
	assert.Equal(t, 1, s.Erros)
	assert.Empty(t, h.batches.reqs)
	e := h.ledger.byMessage(7, "<c@xpto>")
	require.NotNil(t, e)
	assert.Equal(t, entity.LedgerParsedError, e.Status)
	require.NotNil(t, e.ErrorText)
	assert.Contains(t, *e.ErrorText, domain.ReasonClientNotFound)
	assert.Nil(t, e.BatchID)
}

func TestImportForConfig_ProveedorDesconocido(t *testing.T) {
	other := strings.Replace(nfeXML, "11.222.333/0001-81", "12345678000100", 1)
	h := newHarness(t, []mailbox.RawMessage{msg(13, "<d@xpto>", email(xmlPart(other)))}, ingest.Options{})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Erros)
	e := h.ledger.byMessage(7, "<d@xpto>")
	require.NotNil(t, e)
	assert.Equal(t, entity.LedgerParsedError, e.Status)
	assert.Contains(t, *e.ErrorText, domain.ReasonSupplierMissing)
}

func TestImportForConfig_MensajeIlegible(t *testing.T) {
	broken := []byte("Subject: roto\r\nMIME-Version: 1.0\r\nContent-Type: multipart/mixed; boundary=\"X\"\r\n\r\n" +
		"--X\r\nContent-Type: application/xml\r\nContent-Transfer-Encoding: base64\r\n\r\n@@@@ no es base64 @@@@\r\n--X--\r\n")
	h := newHarness(t, []mailbox.RawMessage{msg(14, "<e@xpto>", broken)}, ingest.Options{})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Erros)
	assert.Equal(t, 0, s.Novas)
	e := h.ledger.byMessage(7, "<e@xpto>")
	require.NotNil(t, e)
	assert.Equal(t, entity.LedgerError, e.Status)
	assert.False(t, e.ReceivedAt.IsZero())
}

// bulkyEmail mensaje sin XML con miles de adjuntos de texto; tarda en decodificarse.
func bulkyEmail() []byte {
	parts := make([]string, 0, 20000)
	for i := 0; i < 20000; i++ {
		parts = append(parts, "Content-Type: text/plain\r\nContent-Disposition: attachment; filename=\"anexo-"+
			strconv.Itoa(i)+".txt\"\r\n\r\n"+strings.Repeat("x", 256))
	}
	return email(parts...)
}

func TestImportForConfig_TimeoutDeParseSigueConElSiguiente(t *testing.T) {
	h := newHarness(t, []mailbox.RawMessage{
		msg(20, "<lento@xpto>", bulkyEmail()),
		msg(21, "<ya-visto@xpto>", email(xmlPart(nfeXML))),
	}, ingest.Options{})
	h.configs[0].ParseTimeoutMs = 1
	require.NoError(t, h.ledger.Create(context.Background(), &entity.ImportLedgerEntry{
		ClientID: 7, ConfigID: 1, MessageID: "<ya-visto@xpto>", Status: entity.LedgerParsedOK,
	}))

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Processadas)
	assert.Equal(t, 1, s.Erros)
	assert.Equal(t, 1, s.Duplicadas)
	assert.Equal(t, 0, s.Novas)
	e := h.ledger.byMessage(7, "<lento@xpto>")
	require.NotNil(t, e)
	assert.Equal(t, entity.LedgerError, e.Status)
	require.NotNil(t, e.ErrorText)
	assert.Contains(t, *e.ErrorText, "tiempo límite")
	assert.Equal(t, []uint32{20, 21}, h.session.seen)
}

func TestImportForConfig_TimeoutGlobalSoloSiLaConfigNoDefine(t *testing.T) {
	h := newHarness(t, []mailbox.RawMessage{msg(22, "<lento@xpto>", bulkyEmail())}, ingest.Options{DefaultParseTimeout: time.Millisecond})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Erros)
	assert.Equal(t, entity.LedgerError, h.ledger.byMessage(7, "<lento@xpto>").Status)
}

func TestImportForConfig_SinTimeoutNoHayLimite(t *testing.T) {
	h := newHarness(t, []mailbox.RawMessage{msg(23, "<lento@xpto>", bulkyEmail())}, ingest.Options{})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Erros)
	assert.Equal(t, 1, s.SemXML)
	assert.Equal(t, entity.LedgerNoXML, h.ledger.byMessage(7, "<lento@xpto>").Status)
}

func TestImportForConfig_CuerpoIlegibleNoAbortaLaCorrida(t *testing.T) {
	broken := mailbox.RawMessage{UID: 30, MessageID: "INBOX:1:30", Err: &domain.ParseError{Err: errors.New("uid 30 sin cuerpo")}}
	h := newHarness(t, []mailbox.RawMessage{broken, msg(31, "<a@xpto>", email(xmlPart(nfeXML)))}, ingest.Options{})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Processadas)
	assert.Equal(t, 1, s.Erros)
	assert.Equal(t, 1, s.Novas)
	assert.Equal(t, []int64{101}, s.Lotes)
	e := h.ledger.byMessage(7, "INBOX:1:30")
	require.NotNil(t, e)
	assert.Equal(t, entity.LedgerError, e.Status)
	require.NotNil(t, e.ErrorText)
	assert.Contains(t, *e.ErrorText, "sin cuerpo")
	assert.False(t, e.ReceivedAt.IsZero())
}

func TestImportForConfig_ErrorDeConexion(t *testing.T) {
	h := newHarness(t, nil, ingest.Options{})

	_, err := h.uc.ImportForConfig(context.Background(), 7, 2)

	require.Error(t, err)
	assert.Equal(t, domain.KindConnection, domain.Kind(err))
}

func TestImportForConfig_ConfigInexistente(t *testing.T) {
	h := newHarness(t, nil, ingest.Options{})

	_, err := h.uc.ImportForConfig(context.Background(), 8, 1)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportAllActive_AislaErroresPorConfig(t *testing.T) {
	h := newHarness(t, []mailbox.RawMessage{
		msg(10, "<a@xpto>", email(xmlPart(nfeXML))),
		msg(11, "<b@xpto>", email(bodyText)),
	}, ingest.Options{})

	out, err := h.uc.ImportAllActive(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Configs)
	require.Len(t, out.Detalhes, 2)
	assert.Equal(t, int64(1), out.Detalhes[0].ConfigID)
	require.NotNil(t, out.Detalhes[0].Summary)
	assert.Equal(t, 2, out.Detalhes[0].Summary.Novas)
	assert.Equal(t, int64(2), out.Detalhes[1].ConfigID)
	assert.Nil(t, out.Detalhes[1].Summary)
	assert.Contains(t, out.Detalhes[1].Error, "authentication failed")
	assert.Equal(t, 2, out.Totais.Novas)
	assert.Equal(t, 1, out.Totais.SemXML)
}

func TestImportForConfig_AutoSync(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("erp fuera de línea")}
	h := newHarness(t, []mailbox.RawMessage{msg(10, "<a@xpto>", email(xmlPart(nfeXML)))}, ingest.Options{AutoSync: syncer})

	s, err := h.uc.ImportForConfig(context.Background(), 7, 1)

	require.NoError(t, err, "un fallo del ERP no afecta a la importación")
	assert.Equal(t, 1, s.Novas)
	assert.Equal(t, []int64{101}, syncer.batches)
	assert.Equal(t, entity.LedgerParsedOK, h.ledger.byMessage(7, "<a@xpto>").Status)
}

type upperOpener struct{}

func (upperOpener) Open(sealed string) (string, error) { return strings.ToUpper(sealed), nil }

func TestImportForConfig_DescifraPassword(t *testing.T) {
	h := newHarness(t, nil, ingest.Options{})
	configs := fakeConfigs{{ID: 5, ClientID: 7, Host: "imap.cliente7.com.br", Password: "sellado", StorePassword: true}}
	uc := ingest.NewImportUseCase(configs, h.ledger, h.dialer, ingest.NewResolver(fakeClients{}, fakeBranches{}, fakeSuppliers{}), h.batches, logger.Nop(), ingest.Options{Secrets: upperOpener{}})

	_, err := uc.ImportForConfig(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, h.dialer.dialed, 1)
	assert.Equal(t, "SELLADO", h.dialer.dialed[0].Password)
	assert.True(t, h.dialer.dialed[0].ReadOnly)
	assert.Equal(t, "INBOX", h.dialer.dialed[0].Mailbox)
}
