package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
)

// BatchService alta de lotes (implementado por *batch.UseCase).
type BatchService interface {
	CreateBatch(ctx context.Context, clientID int64, in dto.CreateBatchRequest) (int64, error)
}

// BatchHandler carga manual de lotes.
type BatchHandler struct {
	uc BatchService
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc BatchService) *BatchHandler {
	return &BatchHandler{uc: uc}
}

// Create godoc
// @Summary      Crear lote de producción
// @Tags         lotes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBatchRequest  true  "Lote y productos"
// @Success      201   {object}  dto.CreateBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/lotes [post]
func (h *BatchHandler) Create(c *fiber.Ctx) error {
	clientID, ok := requireClient(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	in.Origin = entity.BatchOriginManual
	id, err := h.uc.CreateBatch(c.UserContext(), clientID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreateBatchResponse{ID: id})
}
