package ports

import (
	"context"

	"github.com/sm8ta/webike_registry/internal/core/domain"
)

type ContentRepository interface {
	GetHomepageContent(ctx context.Context) (*domain.HomepageContent, error)
	SaveHomepageContent(ctx context.Context, content *domain.HomepageContent) (*domain.HomepageContent, error)
}
