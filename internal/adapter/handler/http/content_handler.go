package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type ContentHandler struct {
	contentService *services.ContentService
	logger         ports.LoggerPort
	metrics        ports.MetricsPort
}

type HomepageContentRequest struct {
	Title        string  `json:"title" example:"Registra tu bici"`
	Subtitle     string  `json:"subtitle" example:"Protege tu bicicleta contra el robo"`
	Body         string  `json:"body"`
	HeroImageKey *string `json:"heroImageKey,omitempty" example:"content/homepage/3f1c.jpg"`
}

func NewContentHandler(
	contentService *services.ContentService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
		metrics:        metrics,
	}
}

// @Summary Contenido de la portada
// @Tags public
// @Produce json
// @Success 200 {object} domain.HomepageContent "Contenido"
// @Router /public/content/homepage [get]
func (h *ContentHandler) GetHomepageContent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	content, err := h.contentService.GetHomepageContent(c.Request.Context())
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, content)
}

// @Summary Actualizar portada
// @Tags content
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body HomepageContentRequest true "Contenido"
// @Success 200 {object} domain.HomepageContent "Contenido guardado"
// @Failure 400 {object} errorResponse "Solicitud inválida"
// @Failure 403 {object} errorResponse "Solo administradores"
// @Router /content/homepage [put]
func (h *ContentHandler) UpdateHomepageContent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	var req HomepageContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, invalidJSON())
		return
	}

	content, err := h.contentService.UpdateHomepageContent(c.Request.Context(), payload, domain.HomepageContent{
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		Body:         req.Body,
		HeroImageKey: req.HeroImageKey,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, content)
}

// @Summary URL de carga de imagen principal
// @Tags content
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body UploadURLRequest true "Tipo de contenido"
// @Success 200 {object} domain.UploadTarget "Destino de carga"
// @Failure 400 {object} errorResponse "Tipo de archivo no permitido"
// @Failure 403 {object} errorResponse "Solo administradores"
// @Router /content/homepage/upload-url [post]
func (h *ContentHandler) HeroImageUploadURL(c *gin.Context) {
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

	target, err := h.contentService.HeroImageUploadURL(c.Request.Context(), payload, req.ContentType)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, target)
}
