package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type RideHandler struct {
	rideService *services.RideService
	logger      ports.LoggerPort
	metrics     ports.MetricsPort
}

// RideRequest updates the ride named by ID when one is given.
type RideRequest struct {
	ID           string    `json:"id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Title        string    `json:"title" binding:"required" example:"Rodada nocturna"`
	Description  string    `json:"description,omitempty" example:"Ruta por el centro"`
	MeetingPoint string    `json:"meetingPoint,omitempty" example:"Ángel de la Independencia"`
	StartsAt     time.Time `json:"startsAt" binding:"required" example:"2026-11-01T20:00:00Z"`
	DistanceKm   float64   `json:"distanceKm" example:"25"`
	Difficulty   string    `json:"difficulty,omitempty" example:"easy"`
}

type RideResponse struct {
	RideID string       `json:"rideId"`
	Ride   *domain.Ride `json:"ride"`
}

type RidesResponse struct {
	Rides []*domain.Ride `json:"rides"`
	Count int            `json:"count"`
}

func NewRideHandler(
	rideService *services.RideService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		logger:      logger,
		metrics:     metrics,
	}
}

// @Summary Crear o actualizar rodada
// @Description Publica una rodada, o actualiza la indicada por id
// @Tags rides
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body RideRequest true "Datos de la rodada"
// @Success 200 {object} RideResponse "Rodada guardada"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 401 {object} errorResponse "No autenticado"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Failure 404 {object} errorResponse "Rodada no encontrada"
// @Router /rides [post]
func (h *RideHandler) CreateOrUpdateRide(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		h.logger.Warn("Unauthorized access attempt to CreateOrUpdateRide", map[string]interface{}{
			"ip": c.ClientIP(),
		})
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed JSON parse in create ride", map[string]interface{}{
			"error": err.Error(),
		})
		newErrorResponse(c, invalidJSON())
		return
	}

	ride, err := h.rideService.CreateOrUpdateRide(c.Request.Context(), payload, services.RideInput{
		ID:           req.ID,
		Title:        req.Title,
		Description:  req.Description,
		MeetingPoint: req.MeetingPoint,
		StartsAt:     req.StartsAt,
		DistanceKm:   req.DistanceKm,
		Difficulty:   domain.RideDifficulty(req.Difficulty),
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, RideResponse{RideID: ride.ID.String(), Ride: ride})
}

// @Summary Eliminar rodada
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param id path string true "ID de la rodada"
// @Success 200 {object} successResponse "Rodada eliminada"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Failure 404 {object} errorResponse "Rodada no encontrada"
// @Router /rides/{id} [delete]
func (h *RideHandler) DeleteRide(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	if err := h.rideService.DeleteRide(c.Request.Context(), payload, c.Param("id")); err != nil {
		newErrorResponse(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, "Rodada eliminada.")
}

// @Summary Mis rodadas
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Success 200 {object} RidesResponse "Rodadas organizadas por el usuario"
// @Failure 401 {object} errorResponse "No autenticado"
// @Router /rides/mine [get]
func (h *RideHandler) GetMyRides(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	rides, err := h.rideService.GetMyRides(c.Request.Context(), payload)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, RidesResponse{Rides: rides, Count: len(rides)})
}

// @Summary Próximas rodadas
// @Tags public
// @Produce json
// @Success 200 {object} RidesResponse "Rodadas próximas"
// @Router /public/rides [get]
func (h *RideHandler) GetUpcomingRides(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	rides, err := h.rideService.GetUpcomingRides(c.Request.Context())
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, RidesResponse{Rides: rides, Count: len(rides)})
}
