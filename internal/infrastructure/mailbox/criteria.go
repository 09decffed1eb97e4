package mailbox

import (
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"

	"github.com/jhoicas/Producao-api/internal/domain/entity"
)

const defaultSinceDays = 30

// Criteria criterio de búsqueda independiente del protocolo.
type Criteria struct {
	Since      time.Time
	UnseenOnly bool
	From       string
	Subject    string
	MaxResults int // 0 = sin límite
}

// BuildCriteria arma el criterio desde la config del buzón.
// Los filtros de remitente y asunto se aplican solo si no quedan vacíos tras trim.
func BuildCriteria(cfg *entity.ImapConfig, now time.Time) Criteria {
	days := cfg.SinceDays
	if days <= 0 {
		days = defaultSinceDays
	}
	return Criteria{
		Since:      now.AddDate(0, 0, -days),
		UnseenOnly: cfg.UnseenOnly,
		From:       strings.TrimSpace(cfg.FromFilter),
		Subject:    strings.TrimSpace(cfg.SubjectFilter),
		MaxResults: cfg.MaxResults,
	}
}

func (c Criteria) imapCriteria() *imap.SearchCriteria {
	sc := imap.NewSearchCriteria()
	sc.Since = c.Since
	if c.UnseenOnly {
		sc.WithoutFlags = []string{imap.SeenFlag}
	}
	sc.Header = headerFilter(c.From, c.Subject)
	return sc
}

// LimitRecent ordena los UIDs y, si max > 0 y se excede, conserva los max más recientes (la cola).
func LimitRecent(uids []uint32, max int) []uint32 {
	out := make([]uint32, len(uids))
	copy(out, uids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}
