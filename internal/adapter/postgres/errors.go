package postgres

import (
	"database/sql"
	"errors"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation  = "23505"
	codeNotNullViolation = "23502"
	codeCheckViolation   = "23514"
	codeInvalidText      = "22P02"
)

// translateError maps driver errors onto domain error kinds. Every repository
// method returns through it.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if domain.IsRecognized(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.KindNotFound, entity+" no encontrado.", err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return &domain.Error{Kind: domain.KindAlreadyExists, Message: entity + " ya existe.", Code: string(pqErr.Code), Err: err}
		case codeNotNullViolation, codeInvalidText, codeCheckViolation:
			return &domain.Error{Kind: domain.KindInvalidArgument, Message: "Datos inválidos para " + entity + ".", Code: string(pqErr.Code), Err: err}
		default:
			return &domain.Error{Kind: domain.KindInternal, Message: "Error de base de datos.", Code: string(pqErr.Code), Err: err}
		}
	}

	return domain.WrapError(domain.KindInternal, "Error de base de datos.", err)
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
