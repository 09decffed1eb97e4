package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Producao-api/internal/application/dto"
	"github.com/jhoicas/Producao-api/internal/domain"
)

// writeError traduce errores de dominio a status HTTP y cuerpo dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch domain.Kind(err) {
	case domain.KindConnection:
		status, code = fiber.StatusBadGateway, "MAILBOX_UNAVAILABLE"
	case domain.KindValidation:
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case domain.KindNotFound:
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case domain.KindDuplicate:
		status, code = fiber.StatusConflict, "DUPLICATE"
	case domain.KindTimeout:
		status, code = fiber.StatusGatewayTimeout, "TIMEOUT"
	case domain.KindMapping, domain.KindParse:
		status, code = fiber.StatusUnprocessableEntity, "UNPROCESSABLE"
	default:
		switch {
		case errors.Is(err, domain.ErrConflict):
			status, code = fiber.StatusConflict, "CONFLICT"
		case errors.Is(err, context.Canceled):
			status, code = fiber.StatusRequestTimeout, "CANCELLED"
		}
	}
	body := dto.ErrorResponse{Code: code, Message: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status == fiber.StatusInternalServerError {
		body.Message = "error interno"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func requireClient(c *fiber.Ctx) (int64, bool) {
	id := GetClientID(c)
	return id, id > 0
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "client_id requerido"})
}
