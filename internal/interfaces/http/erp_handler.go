package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Producao-api/internal/application/dto"
)

// ERPService sincronización con el ERP (implementado por *erpsync.SyncUseCase).
type ERPService interface {
	SyncProducts(ctx context.Context, clientID int64, productIDs []int64, concurrency int) (*dto.ERPSyncSummary, error)
	SyncBatch(ctx context.Context, clientID, batchID int64, concurrency int) (*dto.ERPSyncSummary, error)
}

// ERPHandler publicación de productos en el ERP.
type ERPHandler struct {
	uc ERPService
}

// NewERPHandler construye el handler. uc nil = ERP no configurado (503).
func NewERPHandler(uc ERPService) *ERPHandler {
	return &ERPHandler{uc: uc}
}

func (h *ERPHandler) disabled(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "ERP_DISABLED", Message: "integración ERP no configurada"})
}

// SyncProducts godoc
// @Summary      Sincronizar productos con el ERP
// @Tags         erp
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ERPSyncRequest  true  "Productos y concurrencia"
// @Success      200   {object}  dto.ERPSyncSummary
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/erp/products/sync [post]
func (h *ERPHandler) SyncProducts(c *fiber.Ctx) error {
	if h.uc == nil {
		return h.disabled(c)
	}
	clientID, ok := requireClient(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ERPSyncRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.SyncProducts(c.UserContext(), clientID, in.ProductIDs, in.Concurrency)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SyncBatch godoc
// @Summary      Sincronizar con el ERP los productos de un lote
// @Tags         erp
// @Security     Bearer
// @Produce      json
// @Param        id           path   int  true   "ID del lote"
// @Param        concurrency  query  int  false  "Workers"
// @Success      200  {object}  dto.ERPSyncSummary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lotes/{id}/erp-sync [post]
func (h *ERPHandler) SyncBatch(c *fiber.Ctx) error {
	if h.uc == nil {
		return h.disabled(c)
	}
	clientID, ok := requireClient(c)
	if !ok {
		return unauthorized(c)
	}
	batchID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || batchID <= 0 {
		return badRequest(c, "INVALID_ID", "id inválido")
	}
	out, err := h.uc.SyncBatch(c.UserContext(), clientID, batchID, c.QueryInt("concurrency", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
