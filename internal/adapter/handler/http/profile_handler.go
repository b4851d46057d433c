package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	logger         ports.LoggerPort
	metrics        ports.MetricsPort
}

type RegisterProfileRequest struct {
	FirstName  string  `json:"firstName" example:"Ana"`
	LastName   string  `json:"lastName" example:"López"`
	Phone      string  `json:"phone" example:"+52 55 1234 5678"`
	ReferrerID *string `json:"referrerId,omitempty"`
}

type UpdateProfileRequest struct {
	FirstName        *string `json:"firstName,omitempty" example:"Ana"`
	LastName         *string `json:"lastName,omitempty" example:"López"`
	Phone            *string `json:"phone,omitempty" example:"+52 55 1234 5678"`
	OrganizationName *string `json:"organizationName,omitempty"`
}

type AccountRequest struct {
	FirstName        string `json:"firstName" example:"Luis"`
	LastName         string `json:"lastName" example:"Pérez"`
	Email            string `json:"email" binding:"required" example:"cliente@example.com"`
	Phone            string `json:"phone" example:"+52 33 1234 5678"`
	OrganizationName string `json:"organizationName,omitempty" example:"Bicis del Centro"`
}

type UpdateProfileResponse struct {
	Profile     *domain.UserProfile `json:"profile"`
	BikesSynced int                 `json:"bikesSynced"`
}

type AccountResponse struct {
	AccountID string              `json:"accountId"`
	Profile   *domain.UserProfile `json:"profile"`
}

func (r AccountRequest) toInput() domain.AccountInput {
	return domain.AccountInput{
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Phone:            r.Phone,
		OrganizationName: r.OrganizationName,
	}
}

func NewProfileHandler(
	profileService *services.ProfileService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
		metrics:        metrics,
	}
}

// @Summary Crear perfil
// @Description Crea el perfil del usuario autenticado. Si ya existe se devuelve sin cambios
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body RegisterProfileRequest true "Datos del perfil"
// @Success 201 {object} domain.UserProfile "Perfil creado"
// @Success 200 {object} domain.UserProfile "Perfil existente"
// @Failure 400 {object} errorResponse "Referencia inválida"
// @Failure 401 {object} errorResponse "No autenticado"
// @Router /me [post]
func (h *ProfileHandler) Register(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req RegisterProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, invalidJSON())
		return
	}

	profile, created, err := h.profileService.Register(c.Request.Context(), payload, services.RegisterInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		ReferrerID: req.ReferrerID,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, profile)
}

// @Summary Mi perfil
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.UserProfile "Perfil"
// @Failure 404 {object} errorResponse "Perfil no encontrado"
// @Router /me [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), payload)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// @Summary Actualizar perfil
// @Description Actualiza el perfil y sincroniza los datos de contacto en las bicicletas del usuario
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Campos a actualizar"
// @Success 200 {object} UpdateProfileResponse "Perfil actualizado"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 404 {object} errorResponse "Perfil no encontrado"
// @Router /me [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, invalidJSON())
		return
	}

	profile, synced, err := h.profileService.UpdateProfile(c.Request.Context(), payload, domain.ProfileUpdate{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, UpdateProfileResponse{Profile: profile, BikesSynced: synced})
}

// @Summary Registrar cliente
// @Description Un taller da de alta a un ciclista que queda atribuido al taller
// @Tags shop
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AccountRequest true "Datos del cliente"
// @Success 201 {object} AccountResponse "Cliente registrado"
// @Failure 403 {object} errorResponse "Solo talleres"
// @Failure 409 {object} errorResponse "Correo duplicado"
// @Router /shop/customers [post]
func (h *ProfileHandler) OnboardCustomer(c *gin.Context) {
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

	profile, err := h.profileService.OnboardCustomer(c.Request.Context(), payload, req.toInput())
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, AccountResponse{AccountID: profile.ID, Profile: profile})
}
