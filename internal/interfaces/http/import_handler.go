package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	"github.com/jhoicas/Producao-api/internal/domain/repository"
)

// ImportService disparo de importaciones (implementado por *ingest.ImportUseCase).
type ImportService interface {
	ImportForConfig(ctx context.Context, clientID, configID int64) (*dto.ImportSummary, error)
	ImportAllActive(ctx context.Context, clientID int64) (*dto.ImportAllSummary, error)
}

// ImportHandler importación de NFe por buzón, activación de configuraciones y auditoría del ledger.
type ImportHandler struct {
	uc      ImportService
	configs repository.ImapConfigRepository
	ledger  repository.ImportLedgerRepository
}

// NewImportHandler construye el handler.
func NewImportHandler(uc ImportService, configs repository.ImapConfigRepository, ledger repository.ImportLedgerRepository) *ImportHandler {
	return &ImportHandler{uc: uc, configs: configs, ledger: ledger}
}

// ImportConfig godoc
// @Summary      Importar NFe de un buzón
// @Tags         imap
// @Security     Bearer
// @Produce      json
// @Param        configId  path  int  true  "ID de la configuración IMAP"
// @Success      200  {object}  dto.ImportSummary
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/imap/configs/{configId}/import [post]
func (h *ImportHandler) ImportConfig(c *fiber.Ctx) error {
	clientID, ok := requireClient(c)
	if !ok {
		return unauthorized(c)
	}
	configID, err := strconv.ParseInt(c.Params("configId"), 10, 64)
	if err != nil || configID <= 0 {
		return badRequest(c, "INVALID_ID", "configId inválido")
	}
	out, err := h.uc.ImportForConfig(c.UserContext(), clientID, configID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ImportAll godoc
// @Summary      Importar NFe de todos los buzones activos
// @Description  Los errores de cada buzón se informan en el detalle; la respuesta es 200.
// @Tags         imap
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ImportAllSummary
// @Router       /api/imap/import [post]
func (h *ImportHandler) ImportAll(c *fiber.Ctx) error {
	clientID, ok := requireClient(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.uc.ImportAllActive(c.UserContext(), clientID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

// Activate godoc
// @Summary      Activar configuración IMAP (desactiva las demás del cliente)
// @Tags         imap
// @Security     Bearer
// @Param        configId  path  int  true  "ID de la configuración IMAP"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/imap/configs/{configId}/activate [put]
func (h *ImportHandler) Activate(c *fiber.Ctx) error {
	clientID, ok := requireClient(c)
	if !ok {
		return unauthorized(c)
	}
	configID, err := strconv.ParseInt(c.Params("configId"), 10, 64)
	if err != nil || configID <= 0 {
		return badRequest(c, "INVALID_ID", "configId inválido")
	}
	if err := h.configs.SetActive(c.UserContext(), clientID, configID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Ledger godoc
// @Summary      Auditoría del ledger de importación
// @Tags         imap
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "no_xml | imported | parsed_ok | parsed_error | error"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.LedgerListResponse
// @Router       /api/imap/ledger [get]
func (h *ImportHandler) Ledger(c *fiber.Ctx) error {
	clientID, ok := requireClient(c)
	if !ok {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.Normalize()
	status := entity.LedgerStatus(c.Query("status"))
	switch status {
	case "", entity.LedgerNoXML, entity.LedgerImported, entity.LedgerParsedOK, entity.LedgerParsedError, entity.LedgerError:
	default:
		return badRequest(c, "INVALID_STATUS", "status desconocido: "+string(status))
	}

	list, err := h.ledger.List(c.UserContext(), clientID, repository.LedgerFilter{Status: status, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.LedgerListResponse{
		Items: make([]dto.LedgerEntryResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(list)},
	}
	for _, e := range list {
		out.Items = append(out.Items, dto.LedgerEntryResponse{
			ID:          e.ID,
			ConfigID:    e.ConfigID,
			MessageID:   e.MessageID,
			UID:         e.UID,
			Subject:     e.Subject,
			Sender:      e.Sender,
			ReceivedAt:  e.ReceivedAt,
			Status:      string(e.Status),
			ErrorText:   e.ErrorText,
			ContentHash: e.ContentHash,
			ParsedAt:    e.ParsedAt,
			BatchID:     e.BatchID,
			CreatedAt:   e.CreatedAt,
		})
	}
	return c.JSON(out)
}
