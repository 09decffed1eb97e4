// Package mailbox implementa el cliente IMAP que busca y descarga mensajes
// candidatos a contener NFe. Una sesión no es segura para uso concurrente:
// todas las operaciones se serializan con un mutex.
package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/jhoicas/Producao-api/internal/domain"
)

// Config datos de conexión de un buzón (contraseña ya descifrada).
type Config struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	Mailbox  string
	ReadOnly bool // true si no se marcarán mensajes como leídos
}

// Addr devuelve host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RawMessage mensaje tal como llega del servidor, con metadatos del sobre.
type RawMessage struct {
	UID          uint32
	MessageID    string // Message-ID del sobre; si falta, identificador derivado de UIDVALIDITY+UID
	Subject      string
	From         string
	EnvelopeDate time.Time
	Body         []byte
	// Err problema propio del mensaje (sin cuerpo o cuerpo ilegible). La sesión sigue utilizable.
	Err error
}

// Dialer abre sesiones IMAP.
type Dialer struct {
	Timeout   time.Duration
	TLSConfig *tls.Config
}

// NewDialer construye el dialer con timeout de conexión (30 s si es cero).
func NewDialer(timeout time.Duration) *Dialer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dialer{Timeout: timeout}
}

// Session sesión autenticada con el buzón seleccionado.
type Session struct {
	mu          sync.Mutex
	c           *client.Client
	host        string
	mailbox     string
	uidValidity uint32
}

// Dial conecta, autentica y selecciona el buzón. Cualquier fallo es *domain.ConnectionError.
func (d *Dialer) Dial(ctx context.Context, cfg Config) (*Session, error) {
	connErr := func(op string, err error) error {
		return &domain.ConnectionError{Host: cfg.Host, Op: op, Err: err}
	}

	dialCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	nd := &net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(dialCtx, "tcp", cfg.Addr())
	if err != nil {
		return nil, connErr("dial", err)
	}
	if cfg.UseTLS {
		tlsCfg := d.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: cfg.Host}
		}
		tlsConn := tls.Client(conn, tlsCfg)
		if err := tlsConn.HandshakeContext(dialCtx); err != nil {
			conn.Close()
			return nil, connErr("tls", err)
		}
		conn = tlsConn
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, connErr("greeting", err)
	}
	c.Timeout = d.Timeout

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, connErr("login", err)
	}

	name := cfg.Mailbox
	if name == "" {
		name = "INBOX"
	}
	status, err := c.Select(name, cfg.ReadOnly)
	if err != nil {
		_ = c.Logout()
		return nil, connErr("select", err)
	}

	return &Session{c: c, host: cfg.Host, mailbox: name, uidValidity: status.UidValidity}, nil
}

// Search devuelve los UIDs que cumplen el criterio, en orden ascendente y ya recortados por MaxResults.
func (s *Session) Search(ctx context.Context, cr Criteria) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("buscar en %s: %w", s.host, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	uids, err := s.c.UidSearch(cr.imapCriteria())
	if err != nil {
		return nil, &domain.ConnectionError{Host: s.host, Op: "search", Err: err}
	}
	return LimitRecent(uids, cr.MaxResults), nil
}

// Fetch descarga cada UID una sola vez, en orden, y llama fn con el mensaje.
// La secuencia es finita y no reiniciable; si fn devuelve error se detiene.
// UIDs expurgados entre la búsqueda y la descarga se omiten.
func (s *Session) Fetch(ctx context.Context, uids []uint32, fn func(RawMessage) error) error {
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("descargar uid %d de %s: %w", uid, s.host, err)
		}
		msg, err := s.fetchOne(uid)
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		if err := fn(*msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) fetchOne(uid uint32) (*RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	// Peek: descargar no debe marcar \Seen; eso lo decide MarkSeen.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	var out *RawMessage
	for msg := range messages {
		out = s.toRaw(msg, section)
	}
	if err := <-done; err != nil {
		return nil, &domain.ConnectionError{Host: s.host, Op: "fetch", Err: err}
	}
	return out, nil
}

// toRaw copia sobre y cuerpo. Los fallos del cuerpo quedan en RawMessage.Err.
func (s *Session) toRaw(msg *imap.Message, section *imap.BodySectionName) *RawMessage {
	raw := &RawMessage{UID: msg.Uid, EnvelopeDate: msg.InternalDate}
	if env := msg.Envelope; env != nil {
		raw.Subject = env.Subject
		raw.MessageID = env.MessageId
		if !env.Date.IsZero() {
			raw.EnvelopeDate = env.Date
		}
		if len(env.From) > 0 {
			from := env.From[0]
			raw.From = from.Address()
			if from.PersonalName != "" {
				raw.From = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
			}
		}
	}
	if raw.MessageID == "" {
		raw.MessageID = fmt.Sprintf("%s:%d:%d", s.mailbox, s.uidValidity, msg.Uid)
	}
	body := msg.GetBody(section)
	if body == nil {
		raw.Err = &domain.ParseError{Err: fmt.Errorf("uid %d sin cuerpo", msg.Uid)}
		return raw
	}
	b, err := io.ReadAll(body)
	if err != nil {
		raw.Err = &domain.ParseError{Err: fmt.Errorf("leer cuerpo uid %d: %w", msg.Uid, err)}
		return raw
	}
	raw.Body = b
	return raw
}

// MarkSeen agrega \Seen a los UIDs indicados.
func (s *Session) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("marcar leídos en %s: %w", s.host, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(seqSet, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return &domain.ConnectionError{Host: s.host, Op: "store", Err: err}
	}
	return nil
}

// Close cierra la sesión (logout). Seguro de llamar más de una vez.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return nil
	}
	err := s.c.Logout()
	s.c = nil
	return err
}

// headerFilter arma el MIMEHeader de búsqueda (HEADER <campo> <valor>).
func headerFilter(from, subject string) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	if from != "" {
		h.Add("From", from)
	}
	if subject != "" {
		h.Add("Subject", subject)
	}
	if len(h) == 0 {
		return nil
	}
	return h
}
