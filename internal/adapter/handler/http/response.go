package http

import (
	"net/http"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/gin-gonic/gin"
)

const msgUnexpected = "Ocurrió un error inesperado. Inténtalo de nuevo más tarde."

type errorResponse struct {
	Code    string `json:"code" example:"not-found"`
	Message string `json:"message" example:"Bicicleta no encontrado."`
}

type successResponse struct {
	Message string `json:"message" example:"Operación realizada."`
}

var errorStatusMap = map[domain.ErrorKind]int{
	domain.KindUnauthenticated:    http.StatusUnauthorized,
	domain.KindInvalidArgument:    http.StatusBadRequest,
	domain.KindAlreadyExists:      http.StatusConflict,
	domain.KindPermissionDenied:   http.StatusForbidden,
	domain.KindFailedPrecondition: http.StatusPreconditionFailed,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindInternal:           http.StatusInternalServerError,
}

func statusForError(err error) int {
	if status, ok := errorStatusMap[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// newErrorResponse writes err as {"code", "message"} and aborts the chain.
// Unrecognized errors never leak their text.
func newErrorResponse(c *gin.Context, err error) {
	resp := errorResponse{
		Code:    string(domain.KindInternal),
		Message: msgUnexpected,
	}
	if de, ok := domain.AsError(err); ok {
		resp.Code = string(de.Kind)
		if de.Message != "" {
			resp.Message = de.Message
		}
	}
	c.AbortWithStatusJSON(statusForError(err), resp)
}

func newSuccessResponse(c *gin.Context, status int, message string) {
	c.JSON(status, successResponse{Message: message})
}

func invalidJSON() error {
	return domain.ErrInvalidArgument("Formato JSON inválido.")
}
