package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type TransferHandler struct {
	transferService *services.TransferService
	logger          ports.LoggerPort
	metrics         ports.MetricsPort
}

type TransferRequestBody struct {
	BikeID              string  `json:"bikeId" binding:"required" example:"123e4567-e89b-12d3-a456-426614174000"`
	RecipientEmail      string  `json:"recipientEmail" binding:"required" example:"nuevo.dueno@example.com"`
	TransferDocumentURL *string `json:"transferDocumentUrl,omitempty"`
}

type RespondTransferBody struct {
	Action string `json:"action" binding:"required" enums:"accepted,rejected,cancelled" example:"accepted"`
}

type TransferActionResponse struct {
	Success  bool                    `json:"success"`
	Transfer *domain.TransferRequest `json:"transfer"`
}

type TransfersResponse struct {
	Transfers []*domain.TransferRequest `json:"transfers"`
	Count     int                       `json:"count"`
}

func NewTransferHandler(
	transferService *services.TransferService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
		metrics:         metrics,
	}
}

// @Summary Iniciar transferencia
// @Description El propietario ofrece su bicicleta a otro usuario por correo
// @Tags transfers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body TransferRequestBody true "Datos de la transferencia"
// @Success 201 {object} TransferActionResponse "Solicitud creada"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 403 {object} errorResponse "No eres el propietario"
// @Failure 409 {object} errorResponse "Ya existe una solicitud pendiente"
// @Failure 412 {object} errorResponse "La bicicleta no está En Regla"
// @Router /transfers [post]
func (h *TransferHandler) InitiateTransfer(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req TransferRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed JSON parse in initiate transfer", map[string]interface{}{
			"error": err.Error(),
		})
		newErrorResponse(c, invalidJSON())
		return
	}

	transfer, err := h.transferService.InitiateTransfer(c.Request.Context(), payload, services.InitiateTransferInput{
		BikeID:              req.BikeID,
		RecipientEmail:      req.RecipientEmail,
		TransferDocumentURL: req.TransferDocumentURL,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransferActionResponse{Success: true, Transfer: transfer})
}

// @Summary Responder transferencia
// @Description El destinatario acepta o rechaza; el remitente puede cancelar
// @Tags transfers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ID de la solicitud"
// @Param request body RespondTransferBody true "Acción"
// @Success 200 {object} TransferActionResponse "Solicitud resuelta"
// @Failure 400 {object} errorResponse "Acción no válida"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Failure 404 {object} errorResponse "Solicitud no encontrada"
// @Failure 412 {object} errorResponse "La solicitud ya fue procesada"
// @Router /transfers/{id}/respond [post]
func (h *TransferHandler) RespondToTransfer(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req RespondTransferBody
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, invalidJSON())
		return
	}

	transfer, err := h.transferService.RespondToTransfer(c.Request.Context(), payload, c.Param("id"), req.Action)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, TransferActionResponse{Success: true, Transfer: transfer})
}

// @Summary Mis transferencias
// @Description Solicitudes enviadas y recibidas, más recientes primero
// @Tags transfers
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TransfersResponse "Solicitudes"
// @Failure 401 {object} errorResponse "No autenticado"
// @Router /transfers [get]
func (h *TransferHandler) GetUserTransfers(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	transfers, err := h.transferService.ListForUser(c.Request.Context(), payload)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, TransfersResponse{Transfers: transfers, Count: len(transfers)})
}
