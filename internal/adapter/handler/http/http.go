package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type BikeHandler struct {
	bikeService      *services.BikeService
	lifecycleService *services.LifecycleService
	logger           ports.LoggerPort
	metrics          ports.MetricsPort
}

type BikeRequest struct {
	OwnerID              string   `json:"ownerId,omitempty" example:"b1f4c1de-4a55-4c0e-9a3e-6a1f0c7d2e11"`
	SerialNumber         string   `json:"serialNumber" binding:"required" example:"WTU123456789"`
	Brand                string   `json:"brand" binding:"required" example:"Trek"`
	Model                string   `json:"model" binding:"required" example:"Marlin 5"`
	Color                string   `json:"color,omitempty" example:"Rojo"`
	Description          *string  `json:"description,omitempty" example:"Calcomanía en el cuadro"`
	Location             string   `json:"location,omitempty" example:"CDMX"`
	BikeType             string   `json:"bikeType,omitempty" example:"Montaña"`
	OwnershipDocumentURL *string  `json:"ownershipDocumentUrl,omitempty"`
	PhotoURLs            []string `json:"photoUrls,omitempty"`
}

// UpdateBike is a partial update. An empty description or ownershipDocumentUrl clears the field.
type UpdateBike struct {
	SerialNumber         *string  `json:"serialNumber,omitempty" example:"WTU123456789"`
	Brand                *string  `json:"brand,omitempty" example:"Trek"`
	Model                *string  `json:"model,omitempty" example:"Marlin 6"`
	Color                *string  `json:"color,omitempty" example:"Azul"`
	Description          *string  `json:"description,omitempty"`
	Location             *string  `json:"location,omitempty" example:"Guadalajara"`
	BikeType             *string  `json:"bikeType,omitempty" example:"Ruta"`
	OwnershipDocumentURL *string  `json:"ownershipDocumentUrl,omitempty"`
	PhotoURLs            []string `json:"photoUrls,omitempty"`
}

type ReportStolenRequest struct {
	TheftLocationState      string `json:"theftLocationState" binding:"required" example:"Jalisco"`
	TheftLocationCountry    string `json:"theftLocationCountry,omitempty" example:"México"`
	TheftIncidentDetails    string `json:"theftIncidentDetails" binding:"required" example:"Robada afuera del mercado"`
	TheftPerpetratorDetails string `json:"theftPerpetratorDetails,omitempty"`
	GeneralNotes            string `json:"generalNotes,omitempty"`
}

type UploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required" example:"image/jpeg"`
}

type GetMyBikesResponse struct {
	Bikes []*domain.Bike `json:"bikes"`
	Count int            `json:"count"`
}

// PublicBikeResponse holds the full bike for its owner, the public
// view for anyone else, and null when the serial is unknown.
type PublicBikeResponse struct {
	Bike interface{} `json:"bike"`
}

type BikeActionResponse struct {
	Success bool         `json:"success"`
	Bike    *domain.Bike `json:"bike"`
}

func NewBikeHandler(
	bikeService *services.BikeService,
	lifecycleService *services.LifecycleService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *BikeHandler {
	return &BikeHandler{
		bikeService:      bikeService,
		lifecycleService: lifecycleService,
		logger:           logger,
		metrics:          metrics,
	}
}

// @Summary Registrar bicicleta
// @Description Registra una bicicleta a nombre del usuario, o de un cliente del taller
// @Tags bikes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body BikeRequest true "Datos de la bicicleta"
// @Success 201 {object} domain.Bike "Bicicleta registrada"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 401 {object} errorResponse "No autenticado"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Failure 409 {object} errorResponse "Número de serie duplicado"
// @Failure 412 {object} errorResponse "Perfil inexistente"
// @Router /bikes [post]
func (h *BikeHandler) CreateBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		h.logger.Warn("Unauthorized access attempt to CreateBike", map[string]interface{}{
			"ip": c.ClientIP(),
		})
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión para registrar una bicicleta."))
		return
	}

	var req BikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed JSON parse in create bike", map[string]interface{}{
			"error": err.Error(),
		})
		newErrorResponse(c, invalidJSON())
		return
	}

	bike, err := h.bikeService.CreateBike(c.Request.Context(), payload, services.CreateBikeInput{
		OwnerID:              req.OwnerID,
		SerialNumber:         req.SerialNumber,
		Brand:                req.Brand,
		Model:                req.Model,
		Color:                req.Color,
		Description:          req.Description,
		Location:             req.Location,
		BikeType:             req.BikeType,
		OwnershipDocumentURL: req.OwnershipDocumentURL,
		PhotoURLs:            req.PhotoURLs,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, bike)
}

// @Summary Mis bicicletas
// @Description Bicicletas registradas a nombre del usuario, más recientes primero
// @Tags bikes
// @Security BearerAuth
// @Produce json
// @Success 200 {object} GetMyBikesResponse "Lista de bicicletas"
// @Failure 401 {object} errorResponse "No autenticado"
// @Router /bikes/my [get]
func (h *BikeHandler) GetMyBikes(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión para ver tus bicicletas."))
		return
	}

	bikes, err := h.bikeService.GetMyBikes(c.Request.Context(), payload)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, GetMyBikesResponse{
		Bikes: bikes,
		Count: len(bikes),
	})
}

// @Summary Consultar bicicleta por número de serie
// @Description Búsqueda pública. Solo el propietario recibe el registro completo
// @Tags public
// @Produce json
// @Param serial path string true "Número de serie"
// @Success 200 {object} PublicBikeResponse "Resultado de la búsqueda"
// @Failure 400 {object} errorResponse "Número de serie vacío"
// @Router /public/bikes/serial/{serial} [get]
func (h *BikeHandler) GetPublicBikeBySerial(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, _ := getAuthPayload(c, authorizationPayloadKey)

	lookup, err := h.bikeService.GetPublicBikeBySerial(c.Request.Context(), payload, c.Param("serial"))
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	resp := PublicBikeResponse{}
	switch {
	case lookup == nil:
	case lookup.Full != nil:
		resp.Bike = lookup.Full
	case lookup.Public != nil:
		resp.Bike = lookup.Public
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Obtener bicicleta
// @Description Registro completo de una bicicleta. Solo propietario o administrador
// @Tags bikes
// @Security BearerAuth
// @Produce json
// @Param id path string true "ID de la bicicleta"
// @Success 200 {object} domain.Bike "Bicicleta"
// @Failure 401 {object} errorResponse "No autenticado"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Failure 404 {object} errorResponse "Bicicleta no encontrada"
// @Router /bikes/{id} [get]
func (h *BikeHandler) GetBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	bike, err := h.bikeService.GetBike(c.Request.Context(), payload, c.Param("id"))
	if err != nil {
		if domain.IsKind(err, domain.KindPermissionDenied) {
			h.logger.Warn("Access denied to bike", map[string]interface{}{
				"requester_id": payload.UserID,
				"bike_id":      c.Param("id"),
			})
		}
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, bike)
}

// @Summary Actualizar bicicleta
// @Description Actualiza los datos descriptivos de una bicicleta. Solo propietario o administrador
// @Tags bikes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ID de la bicicleta"
// @Param request body UpdateBike true "Campos a actualizar"
// @Success 200 {object} domain.Bike "Bicicleta actualizada"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Failure 404 {object} errorResponse "Bicicleta no encontrada"
// @Failure 409 {object} errorResponse "Número de serie duplicado"
// @Router /bikes/{id} [put]
func (h *BikeHandler) UpdateBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req UpdateBike
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed JSON parse in update bike", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": c.Param("id"),
		})
		newErrorResponse(c, invalidJSON())
		return
	}

	bike, err := h.bikeService.UpdateBike(c.Request.Context(), payload, c.Param("id"), domain.BikeUpdate{
		SerialNumber:         req.SerialNumber,
		Brand:                req.Brand,
		Model:                req.Model,
		Color:                req.Color,
		Description:          req.Description,
		Location:             req.Location,
		BikeType:             req.BikeType,
		PhotoURLs:            req.PhotoURLs,
		OwnershipDocumentURL: req.OwnershipDocumentURL,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, bike)
}

// @Summary URL de carga de foto
// @Description Genera una URL prefirmada para subir una foto de la bicicleta
// @Tags bikes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ID de la bicicleta"
// @Param request body UploadURLRequest true "Tipo de contenido"
// @Success 200 {object} domain.UploadTarget "Destino de carga"
// @Failure 400 {object} errorResponse "Tipo de archivo no permitido"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Router /bikes/{id}/photos/upload-url [post]
func (h *BikeHandler) PhotoUploadURL(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, invalidJSON())
		return
	}

	target, err := h.bikeService.PhotoUploadURL(c.Request.Context(), payload, c.Param("id"), req.ContentType)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, target)
}

// @Summary Reportar robo
// @Description Marca la bicicleta como robada y guarda los detalles del robo
// @Tags bikes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ID de la bicicleta"
// @Param request body ReportStolenRequest true "Detalles del robo"
// @Success 200 {object} BikeActionResponse "Robo reportado"
// @Failure 400 {object} errorResponse "Detalles incompletos"
// @Failure 403 {object} errorResponse "No eres el propietario"
// @Failure 412 {object} errorResponse "Transición no permitida"
// @Router /bikes/{id}/report-stolen [post]
func (h *BikeHandler) ReportStolen(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req ReportStolenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed JSON parse in report stolen", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": c.Param("id"),
		})
		newErrorResponse(c, domain.ErrInvalidArgument("Indica el estado y los detalles del robo."))
		return
	}

	bike, err := h.lifecycleService.ReportStolen(c.Request.Context(), payload, c.Param("id"), domain.TheftDetails{
		TheftLocationState:      strings.TrimSpace(req.TheftLocationState),
		TheftLocationCountry:    req.TheftLocationCountry,
		TheftIncidentDetails:    strings.TrimSpace(req.TheftIncidentDetails),
		TheftPerpetratorDetails: req.TheftPerpetratorDetails,
		GeneralNotes:            req.GeneralNotes,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, BikeActionResponse{Success: true, Bike: bike})
}

// @Summary Marcar como recuperada
// @Description Regresa una bicicleta robada al estado En Regla
// @Tags bikes
// @Security BearerAuth
// @Produce json
// @Param id path string true "ID de la bicicleta"
// @Success 200 {object} BikeActionResponse "Bicicleta recuperada"
// @Failure 403 {object} errorResponse "No eres el propietario"
// @Failure 412 {object} errorResponse "La bicicleta no está reportada como robada"
// @Router /bikes/{id}/recover [post]
func (h *BikeHandler) MarkRecovered(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	bike, err := h.lifecycleService.MarkRecovered(c.Request.Context(), payload, c.Param("id"))
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, BikeActionResponse{Success: true, Bike: bike})
}
