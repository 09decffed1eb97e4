package batch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Producao-api/internal/application/batch"
	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
	"github.com/jhoicas/Producao-api/pkg/logger"
)

// store simula las tablas; fakeTx solo publica lo escrito si fn no devuelve error.
type store struct {
	nextID   int64
	batches  []*entity.ProductionBatch
	products []*entity.ProductionProduct
	failProd bool
}

type txBatchRepo struct {
	s        *store
	batches  []*entity.ProductionBatch
	products []*entity.ProductionProduct
}

func (r *txBatchRepo) Create(ctx context.Context, b *entity.ProductionBatch) error {
	r.s.nextID++
	b.ID = r.s.nextID
	r.batches = append(r.batches, b)
	return nil
}

func (r *txBatchRepo) CreateProducts(ctx context.Context, ps []*entity.ProductionProduct) error {
	if r.s.failProd {
		return errors.New("insert products: conexión perdida")
	}
	r.products = append(r.products, ps...)
	return nil
}

func (r *txBatchRepo) GetByID(ctx context.Context, id int64) (*entity.ProductionBatch, error) {
	return nil, nil
}

type fakeTx struct{ s *store }

func (f *fakeTx) RunBatch(ctx context.Context, fn func(repository.BatchRepository) error) error {
	repo := &txBatchRepo{s: f.s}
	if err := fn(repo); err != nil {
		return err
	}
	f.s.batches = append(f.s.batches, repo.batches...)
	f.s.products = append(f.s.products, repo.products...)
	return nil
}

type fakeBranches map[int64]*entity.Branch

func (f fakeBranches) GetByID(ctx context.Context, id int64) (*entity.Branch, error) {
	return f[id], nil
}

func (f fakeBranches) FirstByClient(ctx context.Context, clientID int64) (*entity.Branch, error) {
	return nil, nil
}

type fakeFiscalDocs struct {
	links []*entity.FiscalDocumentLink
	err   error
}

func (f *fakeFiscalDocs) Create(ctx context.Context, l *entity.FiscalDocumentLink) error {
	if f.err != nil {
		return f.err
	}
	f.links = append(f.links, l)
	return nil
}

func newUseCase(s *store, docs *fakeFiscalDocs) *batch.UseCase {
	branches := fakeBranches{
		3: {ID: 3, ClientID: 7, Name: "Matriz"},
		9: {ID: 9, ClientID: 8, Name: "Otra"},
	}
	return batch.NewUseCase(&fakeTx{s: s}, branches, docs, logger.Nop())
}

func request() dto.CreateBatchRequest {
	return dto.CreateBatchRequest{
		BranchID: 3,
		Code:     "L-001",
		Products: []dto.BatchProductInput{
			{Code: "P1", Description: "Tecido", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.RequireFromString("5.00")},
			{Code: "P2", Description: "Linha"},
		},
	}
}

func TestCreateBatch_OK(t *testing.T) {
	s := &store{}
	uc := newUseCase(s, &fakeFiscalDocs{})

	id, err := uc.CreateBatch(context.Background(), 7, request())
	require.NoError(t, err)

	assert.Equal(t, int64(1), id)
	require.Len(t, s.batches, 1)
	b := s.batches[0]
	assert.Equal(t, entity.BatchOriginManual, b.Origin)
	assert.Equal(t, entity.BatchStatusReceived, b.Status)
	assert.False(t, b.ReceivedAt.IsZero())

	require.Len(t, s.products, 2)
	for _, p := range s.products {
		assert.Equal(t, id, p.BatchID)
		assert.Equal(t, int64(7), p.ClientID)
		assert.Equal(t, entity.ProductStatusPending, p.Status)
	}
	// numéricos omitidos valen cero
	assert.True(t, s.products[1].Quantity.IsZero())
	assert.True(t, s.products[1].UnitPrice.IsZero())
}

func TestCreateBatch_BranchNotFound(t *testing.T) {
	for name, branchID := range map[string]int64{"inexistente": 99, "otro cliente": 9, "cero": 0} {
		t.Run(name, func(t *testing.T) {
			s := &store{}
			uc := newUseCase(s, &fakeFiscalDocs{})
			in := request()
			in.BranchID = branchID

			_, err := uc.CreateBatch(context.Background(), 7, in)

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "branch_id", vErr.Field)
			assert.Equal(t, "branch not found", vErr.Message)
			assert.Empty(t, s.batches)
		})
	}
}

func TestCreateBatch_InvalidProduct(t *testing.T) {
	uc := newUseCase(&store{}, &fakeFiscalDocs{})
	in := request()
	in.Products = append(in.Products, dto.BatchProductInput{Quantity: decimal.NewFromInt(1)})

	_, err := uc.CreateBatch(context.Background(), 7, in)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateBatch_ProductsFailureRollsBack(t *testing.T) {
	s := &store{failProd: true}
	uc := newUseCase(s, &fakeFiscalDocs{})

	_, err := uc.CreateBatch(context.Background(), 7, request())

	require.Error(t, err)
	assert.Empty(t, s.batches)
	assert.Empty(t, s.products)
}

func TestCreateBatch_FiscalLinkFailureKeepsBatch(t *testing.T) {
	s := &store{}
	docs := &fakeFiscalDocs{err: errors.New("insert fiscal document: timeout")}
	uc := newUseCase(s, docs)
	in := request()
	in.Origin = entity.BatchOriginNFe
	in.FiscalDocument = &dto.FiscalDocumentInput{AccessKey: "3524", IssuedAt: time.Now()}

	id, err := uc.CreateBatch(context.Background(), 7, in)

	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.Len(t, s.batches, 1)
	assert.Equal(t, entity.BatchOriginNFe, s.batches[0].Origin)
}

func TestCreateBatch_FiscalLinkPersisted(t *testing.T) {
	docs := &fakeFiscalDocs{}
	uc := newUseCase(&store{}, docs)
	in := request()
	in.FiscalDocument = &dto.FiscalDocumentInput{AccessKey: "3524", Number: "123", TotalInvoice: decimal.RequireFromString("92.50")}

	id, err := uc.CreateBatch(context.Background(), 7, in)

	require.NoError(t, err)
	require.Len(t, docs.links, 1)
	assert.Equal(t, id, docs.links[0].BatchID)
	assert.Equal(t, "92.5", docs.links[0].TotalInvoice.String())
}
