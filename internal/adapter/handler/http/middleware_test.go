package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

// staticTokens accepts exactly the tokens it knows about.
type staticTokens map[string]*domain.TokenPayload

func (s staticTokens) VerifyToken(_ context.Context, token string) (*domain.TokenPayload, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, errors.New("unknown token")
}

var testTokens = staticTokens{
	"cyclist-token": {ID: "t1", UserID: "user-1", Email: "uno@example.com", Role: domain.Cyclist},
	"dos-token":     {ID: "t4", UserID: "user-2", Email: "dos@example.com", Role: domain.Cyclist},
	"shop-token":    {ID: "t2", UserID: "shop-1", Email: "taller@example.com", Role: domain.BikeShop},
	"admin-token":   {ID: "t3", UserID: "admin-1", Email: "admin@example.com", Role: domain.Admin},
}

func whoAmI(c *gin.Context) {
	payload, ok := getAuthPayload(c, authorizationPayloadKey)
	if !ok {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, payload.UserID)
}

func serve(engine *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	engine := gin.New()
	engine.GET("/", AuthMiddleware(testTokens), whoAmI)

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantBody    string
		wantMessage string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantMessage: "Falta el encabezado de autorización."},
		{name: "wrong scheme", header: "Basic cyclist-token", wantStatus: http.StatusUnauthorized, wantMessage: "Falta el encabezado de autorización."},
		{name: "extra fields", header: "Bearer cyclist-token extra", wantStatus: http.StatusUnauthorized, wantMessage: "Falta el encabezado de autorización."},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized, wantMessage: "Token inválido o expirado."},
		{name: "valid token", header: "Bearer cyclist-token", wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "scheme is case-insensitive", header: "bEaReR shop-token", wantStatus: http.StatusOK, wantBody: "shop-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMessage != "" {
				resp := decodeError(t, w)
				assert.Equal(t, "unauthenticated", resp.Code)
				assert.Equal(t, tt.wantMessage, resp.Message)
				return
			}
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	engine := gin.New()
	engine.GET("/", OptionalAuth(testTokens), whoAmI)

	assert.Equal(t, "anonymous", serve(engine, "").Body.String())
	assert.Equal(t, "anonymous", serve(engine, "Bearer forged").Body.String())
	assert.Equal(t, "anonymous", serve(engine, "garbage").Body.String())
	assert.Equal(t, "admin-1", serve(engine, "Bearer admin-token").Body.String())
}

func TestRequireRoles(t *testing.T) {
	engine := gin.New()
	engine.GET("/", AuthMiddleware(testTokens), RequireRoles(domain.BikeShop, domain.Admin), whoAmI)

	w := serve(engine, "Bearer cyclist-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "permission-denied", resp.Code)
	assert.Equal(t, "No tienes permisos para realizar esta acción.", resp.Message)

	assert.Equal(t, "shop-1", serve(engine, "Bearer shop-token").Body.String())
	assert.Equal(t, "admin-1", serve(engine, "Bearer admin-token").Body.String())

	t.Run("without a payload", func(t *testing.T) {
		bare := gin.New()
		bare.GET("/", RequireRoles(domain.Admin), whoAmI)

		w := serve(bare, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthenticated", decodeError(t, w).Code)
	})
}
