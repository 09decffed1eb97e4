package entity

import "time"

// ImapConfig parámetros de conexión al buzón de un cliente.
// Solo una configuración por cliente puede estar activa.
type ImapConfig struct {
	ID             int64
	ClientID       int64
	Host           string
	Port           int
	UseTLS         bool
	Username       string
	Password       string // cifrada en reposo si StorePassword
	Mailbox        string // INBOX por defecto
	SinceDays      int    // ventana de búsqueda en días
	UnseenOnly     bool
	MarkSeen       bool
	FromFilter     string
	SubjectFilter  string
	MaxResults     int // 0 = sin límite
	ParseTimeoutMs int // 0 = sin límite
	StorePassword  bool
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MailboxName devuelve el buzón a seleccionar.
func (c *ImapConfig) MailboxName() string {
	if c.Mailbox == "" {
		return "INBOX"
	}
	return c.Mailbox
}

// ParseTimeout convierte ParseTimeoutMs a Duration (0 = sin límite).
func (c *ImapConfig) ParseTimeout() time.Duration {
	if c.ParseTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(c.ParseTimeoutMs) * time.Millisecond
}
