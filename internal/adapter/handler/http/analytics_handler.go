package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
	logger           ports.LoggerPort
	metrics          ports.MetricsPort
}

func NewAnalyticsHandler(
	analyticsService *services.AnalyticsService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
		metrics:          metrics,
	}
}

// @Summary Estadísticas de atribución
// @Description Usuarios y bicicletas atribuidos a un taller u ONG en un rango de fechas
// @Tags analytics
// @Security BearerAuth
// @Produce json
// @Param attributionId query string false "Taller u ONG (solo administradores)"
// @Param from query string false "Desde (YYYY-MM-DD o RFC3339)"
// @Param to query string false "Hasta (YYYY-MM-DD o RFC3339)"
// @Success 200 {object} domain.AttributionStats "Estadísticas"
// @Failure 400 {object} errorResponse "Rango inválido"
// @Failure 403 {object} errorResponse "Acceso denegado"
// @Failure 500 {object} errorResponse "Error de agregación"
// @Router /analytics [get]
func (h *AnalyticsHandler) GetAttributionStats(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, domain.ErrUnauthenticated("Debes iniciar sesión."))
		return
	}

	from, err := queryTime(c, "from", false)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	to, err := queryTime(c, "to", true)
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	stats, err := h.analyticsService.GetAttributionStats(c.Request.Context(), payload, c.Query("attributionId"), domain.DateRange{
		From: from,
		To:   to,
	})
	if err != nil {
		newErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// queryTime accepts RFC3339 or a bare date. A bare "to" date covers the whole day.
func queryTime(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, domain.ErrInvalidArgument("Fecha inválida en " + key + ". Usa YYYY-MM-DD.")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
