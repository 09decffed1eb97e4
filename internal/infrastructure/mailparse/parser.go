// Package mailparse decodifica mensajes MIME crudos y aísla el adjunto XML fiscal.
package mailparse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // registra decodificadores ISO-8859-1, Windows-1252, etc.
	"github.com/emersion/go-message/mail"

	"github.com/jhoicas/Producao-api/internal/domain"
)

// Attachment adjunto decodificado.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IsFiscalXML extensión .xml (sin importar mayúsculas) o content type que contenga "xml".
func (a Attachment) IsFiscalXML() bool {
	return strings.HasSuffix(strings.ToLower(a.Filename), ".xml") ||
		strings.Contains(strings.ToLower(a.ContentType), "xml")
}

// ParsedMessage vista estructurada de un mensaje.
type ParsedMessage struct {
	Subject     string
	From        string
	Date        time.Time
	Attachments []Attachment
}

// FiscalXML devuelve el primer adjunto XML. Se asume una sola NFe por mensaje:
// si hay varios, gana el primero.
func (m *ParsedMessage) FiscalXML() (*Attachment, bool) {
	for i := range m.Attachments {
		if m.Attachments[i].IsFiscalXML() {
			return &m.Attachments[i], true
		}
	}
	return nil, false
}

// Options parámetros de una llamada a Parse.
type Options struct {
	Timeout      time.Duration // 0 = sin límite
	EnvelopeDate time.Time     // fecha del protocolo si el cuerpo no trae Date
}

type result struct {
	msg *ParsedMessage
	err error
}

// Parse decodifica raw. Con Timeout > 0 el parse compite con un timer y, si vence,
// devuelve *domain.TimeoutError sin esperar a la goroutine.
func Parse(ctx context.Context, raw []byte, opts Options) (*ParsedMessage, error) {
	if opts.Timeout <= 0 {
		return parse(raw, opts.EnvelopeDate)
	}

	ch := make(chan result, 1)
	go func() {
		msg, err := parse(raw, opts.EnvelopeDate)
		ch <- result{msg: msg, err: err}
	}()

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-timer.C:
		return nil, &domain.TimeoutError{After: opts.Timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func parse(raw []byte, envelopeDate time.Time) (*ParsedMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, &domain.ParseError{Err: fmt.Errorf("leer cabeceras: %w", err)}
	}
	if mr == nil {
		return nil, &domain.ParseError{Err: errors.New("mensaje vacío")}
	}
	defer mr.Close()

	out := &ParsedMessage{Date: envelopeDate}
	if subject, err := mr.Header.Subject(); err == nil {
		out.Subject = subject
	}
	out.From = senderText(mr.Header)
	if d, err := mr.Header.Date(); err == nil && !d.IsZero() {
		out.Date = d
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return nil, &domain.ParseError{Err: fmt.Errorf("leer parte: %w", err)}
		}

		att, ok, err := toAttachment(part)
		if err != nil {
			return nil, &domain.ParseError{Err: err}
		}
		if ok {
			out.Attachments = append(out.Attachments, att)
		}
	}
	return out, nil
}

// toAttachment convierte una parte en adjunto. Las partes inline de texto sin nombre
// (cuerpo del correo) se ignoran.
func toAttachment(part *mail.Part) (Attachment, bool, error) {
	var (
		filename string
		ctype    string
	)
	switch h := part.Header.(type) {
	case *mail.AttachmentHeader:
		filename, _ = h.Filename()
		ctype, _, _ = h.ContentType()
	case *mail.InlineHeader:
		var params map[string]string
		ctype, params, _ = h.ContentType()
		if _, dparams, err := h.ContentDisposition(); err == nil {
			filename = dparams["filename"]
		}
		if filename == "" {
			filename = params["name"]
		}
		if filename == "" && (ctype == "" || strings.HasPrefix(ctype, "text/plain") || strings.HasPrefix(ctype, "text/html")) {
			return Attachment{}, false, nil
		}
		if filename != "" {
			if dec, err := new(mime.WordDecoder).DecodeHeader(filename); err == nil {
				filename = dec
			}
		}
	default:
		return Attachment{}, false, nil
	}

	data, err := io.ReadAll(part.Body)
	if err != nil {
		return Attachment{}, false, fmt.Errorf("leer adjunto %q: %w", filename, err)
	}
	return Attachment{Filename: filename, ContentType: ctype, Data: data}, true, nil
}

func senderText(h mail.Header) string {
	if list, err := h.AddressList("From"); err == nil && len(list) > 0 {
		return list[0].String()
	}
	return strings.TrimSpace(h.Get("From"))
}
