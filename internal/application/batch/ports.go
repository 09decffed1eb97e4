package batch

import (
	"context"

	"github.com/jhoicas/Producao-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción, con el repositorio de lotes atado a esa tx.
// Lote y productos se insertan juntos o no se inserta nada.
type TxRunner interface {
	RunBatch(ctx context.Context, fn func(batchRepo repository.BatchRepository) error) error
}
