package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// ErrorKind identifica la variante de un error del pipeline de importación.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnection
	KindParse
	KindTimeout
	KindMapping
	KindValidation
	KindDuplicate
	KindNotFound
)

// ConnectionError buzón inalcanzable o fallo de autenticación. Aborta la corrida.
type ConnectionError struct {
	Host string
	Op   string // dial, login, select, search, fetch, store
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap %s %s: %v", e.Op, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ParseError fallo estructural al decodificar un mensaje.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// TimeoutError el parse no terminó dentro del tiempo configurado.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("parse excedió el tiempo límite de %s", e.After)
}

// Motivos de MappingError.
const (
	ReasonInvalidXML      = "xml_invalido"
	ReasonMissingInvoice  = "infnfe_ausente"
	ReasonClientNotFound  = "cliente_no_encontrado"
	ReasonBranchNotFound  = "filial_no_encontrada"
	ReasonSupplierMissing = "proveedor_no_encontrado"
	ReasonNoItems         = "sin_items"
)

// MappingError el XML no pudo convertirse en un lote completo. No hay lotes parciales.
type MappingError struct {
	Reason string
	Detail string
	Err    error
}

func (e *MappingError) Error() string {
	if e.Detail == "" {
		return "nfe: " + e.Reason
	}
	return fmt.Sprintf("nfe: %s: %s", e.Reason, e.Detail)
}

func (e *MappingError) Unwrap() error { return e.Err }

// ValidationError entrada inválida en un campo concreto.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// DuplicateError el mensaje ya figura en el ledger del cliente.
type DuplicateError struct {
	MessageID string
}

func (e *DuplicateError) Error() string { return "mensaje ya importado: " + e.MessageID }

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Kind devuelve la variante de err (o KindUnknown). Un plazo de contexto vencido cuenta como KindTimeout.
func Kind(err error) ErrorKind {
	var (
		connErr    *ConnectionError
		parseErr   *ParseError
		timeoutErr *TimeoutError
		mapErr     *MappingError
		valErr     *ValidationError
		dupErr     *DuplicateError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &connErr):
		return KindConnection
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &mapErr):
		return KindMapping
	case errors.As(err, &valErr), errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.As(err, &dupErr), errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}
