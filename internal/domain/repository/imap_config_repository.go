package repository

import (
	"context"

	"github.com/jhoicas/Producao-api/internal/domain/entity"
)

// ImapConfigRepository puerto de lectura de configuraciones de buzón (solo lectura para el pipeline).
// GetByID y ListActiveByClient devuelven (nil, nil) / vacío si no hay datos.
type ImapConfigRepository interface {
	GetByID(ctx context.Context, clientID, id int64) (*entity.ImapConfig, error)
	ListActiveByClient(ctx context.Context, clientID int64) ([]*entity.ImapConfig, error)
	// SetActive activa id y desactiva las demás configuraciones del cliente.
	SetActive(ctx context.Context, clientID, id int64) error
}
