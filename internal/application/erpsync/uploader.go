// Package erpsync publica productos de producción en el catálogo del ERP
// con un pool de workers acotado.
package erpsync

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Producao-api/internal/infrastructure/erp"
	"github.com/jhoicas/Producao-api/pkg/logger"
)

// DefaultConcurrency workers cuando el llamador no indica un valor positivo.
const DefaultConcurrency = 4

// MsgMissingRemoteID error de un alta aceptada por el ERP sin id en la respuesta.
const MsgMissingRemoteID = "ERP não retornou id"

// ProductWriter puerto hacia el ERP (implementado por *erp.Client).
type ProductWriter interface {
	CreateProduct(ctx context.Context, p erp.ProductPayload) (int64, error)
	UpdateProduct(ctx context.Context, remoteID int64, p erp.ProductPayload) error
}

// Item producto local a publicar. Con RemoteID se actualiza en lugar de crear.
type Item struct {
	LocalID  int64
	RemoteID *int64
	Payload  erp.ProductPayload
}

// Result resultado de un ítem, etiquetado con su id local.
type Result struct {
	LocalID  int64
	OK       bool
	RemoteID int64
	Error    string
}

// Uploader reparte los ítems entre workers que consumen un cursor compartido.
type Uploader struct {
	writer ProductWriter
	log    *logger.Logger
}

// NewUploader construye el uploader.
func NewUploader(writer ProductWriter, log *logger.Logger) *Uploader {
	return &Uploader{writer: writer, log: log}
}

// SyncBatch publica items con min(concurrency, len(items)) workers y devuelve
// exactamente un resultado por ítem, en el mismo orden de entrada.
// Cada worker escribe solo en los índices que reclamó, sin locks.
func (u *Uploader) SyncBatch(ctx context.Context, items []Item, concurrency int) []Result {
	results := make([]Result, len(items))
	if len(items) == 0 {
		return results
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	workers := min(concurrency, len(items))

	var cursor atomic.Int64
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				results[i] = u.syncOne(ctx, items[i])
			}
		})
	}
	_ = g.Wait() // los workers no devuelven error: los fallos quedan en results

	return results
}

func (u *Uploader) syncOne(ctx context.Context, it Item) (res Result) {
	res.LocalID = it.LocalID
	defer func() {
		if r := recover(); r != nil {
			u.log.Error().Int64("product_id", it.LocalID).Interface("panic", r).Msg("erp sync: panic en worker")
			res = Result{LocalID: it.LocalID, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if it.RemoteID != nil && *it.RemoteID > 0 {
		if err := u.writer.UpdateProduct(ctx, *it.RemoteID, it.Payload); err != nil {
			res.Error = err.Error()
			return res
		}
		res.OK, res.RemoteID = true, *it.RemoteID
		return res
	}

	id, err := u.writer.CreateProduct(ctx, it.Payload)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if id <= 0 {
		res.Error = MsgMissingRemoteID
		return res
	}
	res.OK, res.RemoteID = true, id
	return res
}
