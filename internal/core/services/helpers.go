package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	bikeCacheTTL      = 15 * time.Minute
	uploadURLLifetime = 15 * time.Minute

	msgInternal = "Ocurrió un error inesperado. Inténtalo de nuevo más tarde."
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func bikeCacheKey(bikeID string) string {
	return fmt.Sprintf("bike:%s", bikeID)
}

func requireCaller(caller *domain.TokenPayload) error {
	if caller == nil || caller.UserID == "" {
		return domain.ErrUnauthenticated("Debes iniciar sesión para realizar esta acción.")
	}
	return nil
}

func requireAdmin(caller *domain.TokenPayload) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return domain.ErrPermissionDenied("Solo un administrador puede realizar esta acción.")
	}
	return nil
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, domain.ErrInvalidArgument(fmt.Sprintf("Identificador de %s inválido.", what))
	}
	return id, nil
}

// validationError converts validator output into an invalid-argument error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return domain.WrapError(domain.KindInvalidArgument, "Campos inválidos o faltantes: "+strings.Join(fields, ", "), err)
	}
	return domain.WrapError(domain.KindInvalidArgument, "Datos inválidos.", err)
}

// internalError passes recognized non-internal errors through unchanged and logs
// everything else before returning it as internal.
func internalError(logger ports.LoggerPort, msg string, err error, fields map[string]interface{}) error {
	if de, ok := domain.AsError(err); ok && de.Kind != domain.KindInternal {
		return err
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["error"] = err.Error()
	logger.Error(msg, fields)
	if de, ok := domain.AsError(err); ok {
		return de
	}
	return domain.WrapError(domain.KindInternal, msgInternal, err)
}

func invalidateBike(cache ports.CachePort, logger ports.LoggerPort, bikeID string) {
	if err := cache.Delete(bikeCacheKey(bikeID)); err != nil {
		logger.Warn("Failed to invalidate bike cache", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
	}
}

func publishEvent(ctx context.Context, events ports.EventPublisher, logger ports.LoggerPort, event domain.Event) {
	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", map[string]interface{}{
			"error":      err.Error(),
			"event_type": string(event.Type),
			"subject_id": event.SubjectID,
		})
	}
}

func historyEntries(entry *domain.StatusHistoryEntry) []domain.StatusHistoryEntry {
	if entry == nil {
		return nil
	}
	return []domain.StatusHistoryEntry{*entry}
}

func newUploadTarget(ctx context.Context, storage ports.ObjectStorage, prefix, contentType string) (*domain.UploadTarget, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, domain.ErrInvalidArgument("Tipo de archivo no permitido. Usa JPEG, PNG o WebP.")
	}
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
	url, expiresAt, err := storage.GenerateUploadURL(ctx, key, contentType, uploadURLLifetime)
	if err != nil {
		return nil, err
	}
	return &domain.UploadTarget{
		UploadURL:  url,
		ExpiresAt:  expiresAt,
		StorageKey: key,
		PublicURL:  storage.PublicURL(key),
	}, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
