package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	profileService *services.ProfileService
	logger         ports.LoggerPort
	metrics        ports.MetricsPort
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required" enums:"cyclist,bikeshop,ngo,admin" example:"bikeshop"`
}

type ProfilesResponse struct {
	Users []*domain.UserProfile `json:"users"`
	Count int                   `json:"count"`
}

func NewAdminHandler(
	profileService *services.ProfileService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *AdminHandler {
	return &AdminHandler{
		profileService: profileService,
		logger:         logger,
		metrics:        metrics,
	}
}

// @Summary Listar usuarios
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param role query string false "Filtrar por rol"
// @Param limit query int false "Máximo de resultados" default(50)
// @Param offset query int false "Desplazamiento" default(0)
// @Success 200 {object} ProfilesResponse "Usuarios"
// @Failure 403 {object} errorResponse "Solo administradores"
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	users, err := h.profileService.ListProfiles(c.Request.Context(), payload, domain.UserRole(c.Query("role")), limit, offset)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, ProfilesResponse{Users: users, Count: len(users)})
}

// @Summary Cambiar rol
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ID del usuario"
// @Param request body UpdateRoleRequest true "Nuevo rol"
// @Success 200 {object} successResponse "Rol actualizado"
// @Failure 400 {object} errorResponse "Rol no válido"
// @Failure 403 {object} errorResponse "Solo administradores"
// @Failure 404 {object} errorResponse "Usuario no encontrado"
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, invalidJSON())
		return
	}

	message, err := h.profileService.UpdateUserRole(c.Request.Context(), payload, c.Param("id"), domain.UserRole(req.Role))
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, message)
}

// @Summary Eliminar cuenta
// @Description Elimina el perfil del usuario y todas sus bicicletas
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "ID del usuario"
// @Success 200 {object} successResponse "Cuenta eliminada"
// @Failure 403 {object} errorResponse "Solo administradores"
// @Failure 404 {object} errorResponse "Usuario no encontrado"
// @Failure 412 {object} errorResponse "No puedes eliminar tu propia cuenta"
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUserAccount(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	message, err := h.profileService.DeleteUserAccount(c.Request.Context(), payload, c.Param("id"))
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, message)
}

// @Summary Crear cuenta de taller
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AccountRequest true "Datos del taller"
// @Success 201 {object} AccountResponse "Cuenta creada"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 409 {object} errorResponse "Correo duplicado"
// @Router /admin/accounts/bikeshop [post]
func (h *AdminHandler) CreateBikeShopAccount(c *gin.Context) {
	h.createOrganization(c, domain.BikeShop)
}

// @Summary Crear cuenta de ONG
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AccountRequest true "Datos de la ONG"
// @Success 201 {object} AccountResponse "Cuenta creada"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 409 {object} errorResponse "Correo duplicado"
// @Router /admin/accounts/ngo [post]
func (h *AdminHandler) CreateNgoAccount(c *gin.Context) {
	h.createOrganization(c, domain.NGO)
}

func (h *AdminHandler) createOrganization(c *gin.Context, role domain.UserRole) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, invalidJSON())
		return
	}

	profile, err := h.profileService.CreateOrganizationAccount(c.Request.Context(), payload, role, req.toInput())
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, AccountResponse{AccountID: profile.ID, Profile: profile})
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domain.ErrInvalidArgument("El parámetro " + key + " debe ser un entero no negativo.")
	}
	return v, nil
}
