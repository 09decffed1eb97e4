package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/Producao-api/internal/domain"
)

// Códigos SQLSTATE que el dominio distingue.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if pgErr := pgError(err); pgErr != nil {
		return pgErr.Code == codeUniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), codeUniqueViolation)
}

// foreignKeyField devuelve la columna referida por una violación de FK (23503), o "" si err no lo es.
// Postgres nombra las FK implícitas como <tabla>_<columna>_fkey.
func foreignKeyField(err error) string {
	pgErr := pgError(err)
	if pgErr == nil || pgErr.Code != codeForeignKeyViolation {
		return ""
	}
	name := strings.TrimSuffix(pgErr.ConstraintName, "_fkey")
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	if name == "" {
		return "reference"
	}
	return name
}

// translateWriteError traduce los errores de escritura conocidos a errores de dominio.
func translateWriteError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	if field := foreignKeyField(err); field != "" {
		return &domain.ValidationError{Field: field, Message: "referencia inexistente"}
	}
	return nil
}
