package mailbox

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Producao-api/internal/domain"
)

func TestToRaw_SinCuerpoQuedaEnElMensaje(t *testing.T) {
	s := &Session{host: "imap.x", mailbox: "INBOX", uidValidity: 1}
	received := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	msg := &imap.Message{
		Uid:          9,
		InternalDate: received,
		Envelope: &imap.Envelope{
			Subject: "NF-e 1234",
			From:    []*imap.Address{{PersonalName: "Fornecedor XPTO", MailboxName: "nfe", HostName: "xpto.com.br"}},
		},
	}

	raw := s.toRaw(msg, &imap.BodySectionName{Peek: true})

	require.NotNil(t, raw)
	assert.Equal(t, uint32(9), raw.UID)
	assert.Equal(t, "INBOX:1:9", raw.MessageID, "sin Message-ID se deriva de UIDVALIDITY y UID")
	assert.Equal(t, "Fornecedor XPTO <nfe@xpto.com.br>", raw.From)
	assert.True(t, raw.EnvelopeDate.Equal(received))
	assert.Nil(t, raw.Body)
	require.Error(t, raw.Err)
	assert.Equal(t, domain.KindParse, domain.Kind(raw.Err), "no es un fallo de conexión")
}

func TestToRaw_ConCuerpo(t *testing.T) {
	s := &Session{host: "imap.x", mailbox: "INBOX", uidValidity: 1}
	section := &imap.BodySectionName{Peek: true}
	msg := &imap.Message{
		Uid:      10,
		Envelope: &imap.Envelope{MessageId: "<a@xpto>"},
		Body:     map[*imap.BodySectionName]imap.Literal{{}: strings.NewReader("Subject: x\r\n\r\nhola")},
	}

	raw := s.toRaw(msg, section)

	require.NoError(t, raw.Err)
	assert.Equal(t, "<a@xpto>", raw.MessageID)
	assert.Equal(t, "Subject: x\r\n\r\nhola", string(raw.Body))
}
