package http

import (
	"strings"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeaderKey  = "Authorization"
	authorizationTypeBearer = "bearer"
	authorizationPayloadKey = "authorization_payload"
)

func bearerToken(c *gin.Context) (string, bool) {
	fields := strings.Fields(c.GetHeader(authorizationHeaderKey))
	if len(fields) != 2 || strings.ToLower(fields[0]) != authorizationTypeBearer {
		return "", false
	}
	return fields[1], true
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokenService ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			newErrorResponse(c, domain.ErrUnauthenticated("Falta el encabezado de autorización."))
			return
		}

		payload, err := tokenService.VerifyToken(c.Request.Context(), token)
		if err != nil {
			newErrorResponse(c, domain.ErrUnauthenticated("Token inválido o expirado."))
			return
		}

		c.Set(authorizationPayloadKey, payload)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through. A malformed token is treated as anonymous.
func OptionalAuth(tokenService ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if payload, err := tokenService.VerifyToken(c.Request.Context(), token); err == nil {
				c.Set(authorizationPayloadKey, payload)
			}
		}
		c.Next()
	}
}

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, exists := getAuthPayload(c, authorizationPayloadKey)
		if !exists {
			newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión para realizar esta acción."))
			return
		}
		for _, role := range roles {
			if payload.Role == role {
				c.Next()
				return
			}
		}
		newErrorResponse(c, domain.ErrPermissionDenied("No tienes permisos para realizar esta acción."))
	}
}

func getAuthPayload(c *gin.Context, key string) (*domain.TokenPayload, bool) {
	value, exists := c.Get(key)
	if !exists {
		return nil, false
	}
	payload, ok := value.(*domain.TokenPayload)
	if !ok || payload == nil {
		return nil, false
	}
	return payload, true
}
