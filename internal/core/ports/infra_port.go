package ports

import (
	"context"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/gin-gonic/gin"
)

type LoggerPort interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type MetricsPort interface {
	RecordMetrics(c *gin.Context, start time.Time)
}

type CachePort interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
	PublicURL(storageKey string) string
}

// EventPublisher delivers domain events. Implementations must not block the caller for long.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
