package ports

import (
	"context"

	"github.com/sm8ta/webike_registry/internal/core/domain"
)

type TokenService interface {
	VerifyToken(ctx context.Context, token string) (*domain.TokenPayload, error)
}
