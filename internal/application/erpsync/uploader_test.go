package erpsync_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Producao-api/internal/application/erpsync"
	"github.com/jhoicas/Producao-api/internal/infrastructure/erp"
	"github.com/jhoicas/Producao-api/pkg/logger"
)

// fakeWriter simula el ERP: el comportamiento por código de producto lo decide create.
type fakeWriter struct {
	create   func(p erp.ProductPayload) (int64, error)
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	delay    time.Duration

	mu      sync.Mutex
	updated []int64
}

func (f *fakeWriter) CreateProduct(ctx context.Context, p erp.ProductPayload) (int64, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.create(p)
}

func (f *fakeWriter) UpdateProduct(ctx context.Context, remoteID int64, p erp.ProductPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, remoteID)
	return nil
}

func items(n int) []erpsync.Item {
	out := make([]erpsync.Item, n)
	for i := range out {
		out[i] = erpsync.Item{LocalID: int64(i + 1), Payload: erp.ProductPayload{Code: string(rune('A' + i))}}
	}
	return out
}

func TestUploader_ResultsTaggedByLocalID(t *testing.T) {
	w := &fakeWriter{create: func(p erp.ProductPayload) (int64, error) {
		// completan en orden distinto al de entrada
		time.Sleep(time.Duration('J'-p.Code[0]) * time.Millisecond)
		return int64(p.Code[0]) * 10, nil
	}}
	up := erpsync.NewUploader(w, logger.Nop())

	in := items(10)
	res := up.SyncBatch(context.Background(), in, 3)

	require.Len(t, res, 10)
	for i, r := range res {
		assert.Equal(t, in[i].LocalID, r.LocalID)
		assert.True(t, r.OK)
		assert.Equal(t, int64(in[i].Payload.Code[0])*10, r.RemoteID)
	}
}

func TestUploader_ErrorAndPanicDoNotBlockOthers(t *testing.T) {
	w := &fakeWriter{create: func(p erp.ProductPayload) (int64, error) {
		switch p.Code {
		case "B":
			return 0, errors.New("erp: 422 código duplicado")
		case "C":
			panic("boom")
		}
		return 99, nil
	}}
	up := erpsync.NewUploader(w, logger.Nop())

	res := up.SyncBatch(context.Background(), items(5), 2)

	require.Len(t, res, 5)
	assert.True(t, res[0].OK)
	assert.False(t, res[1].OK)
	assert.Contains(t, res[1].Error, "código duplicado")
	assert.False(t, res[2].OK)
	assert.Contains(t, res[2].Error, "panic")
	assert.Equal(t, int64(3), res[2].LocalID)
	assert.True(t, res[3].OK)
	assert.True(t, res[4].OK)
}

func TestUploader_MissingRemoteID(t *testing.T) {
	w := &fakeWriter{create: func(p erp.ProductPayload) (int64, error) { return 0, nil }}
	up := erpsync.NewUploader(w, logger.Nop())

	res := up.SyncBatch(context.Background(), items(1), 1)

	require.Len(t, res, 1)
	assert.False(t, res[0].OK)
	assert.Equal(t, erpsync.MsgMissingRemoteID, res[0].Error)
}

func TestUploader_BoundedConcurrency(t *testing.T) {
	w := &fakeWriter{delay: 20 * time.Millisecond, create: func(p erp.ProductPayload) (int64, error) { return 1, nil }}
	up := erpsync.NewUploader(w, logger.Nop())

	res := up.SyncBatch(context.Background(), items(8), 2)

	require.Len(t, res, 8)
	assert.LessOrEqual(t, w.maxSeen.Load(), int64(2))
}

func TestUploader_DefaultConcurrency(t *testing.T) {
	w := &fakeWriter{delay: 20 * time.Millisecond, create: func(p erp.ProductPayload) (int64, error) { return 1, nil }}
	up := erpsync.NewUploader(w, logger.Nop())

	res := up.SyncBatch(context.Background(), items(10), 0)

	require.Len(t, res, 10)
	assert.LessOrEqual(t, w.maxSeen.Load(), int64(erpsync.DefaultConcurrency))
}

func TestUploader_EmptyInput(t *testing.T) {
	up := erpsync.NewUploader(&fakeWriter{}, logger.Nop())
	assert.Empty(t, up.SyncBatch(context.Background(), nil, 4))
}

func TestUploader_UpdatesWhenAlreadySynced(t *testing.T) {
	w := &fakeWriter{create: func(p erp.ProductPayload) (int64, error) { return 0, errors.New("no debería crear") }}
	up := erpsync.NewUploader(w, logger.Nop())
	remote := int64(555)

	res := up.SyncBatch(context.Background(), []erpsync.Item{{LocalID: 1, RemoteID: &remote}}, 1)

	require.Len(t, res, 1)
	assert.True(t, res[0].OK)
	assert.Equal(t, int64(555), res[0].RemoteID)
	assert.Equal(t, []int64{555}, w.updated)
}
