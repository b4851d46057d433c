package ports

import (
	"context"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error)
	GetProfileByID(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserProfile, error)
	UpdateRole(ctx context.Context, userID string, role domain.UserRole) (*domain.UserProfile, error)
	IncrementReferralCount(ctx context.Context, userID string) error
	ListProfiles(ctx context.Context, role domain.UserRole, limit, offset int) ([]*domain.UserProfile, error)
	// ListAttributedProfiles returns users registered by, or referred by, attributionID.
	ListAttributedProfiles(ctx context.Context, attributionID string) ([]*domain.UserProfile, error)
	// DeleteAccount removes the profile and every bike it owns in one transaction
	// and returns the ids of the deleted bikes.
	DeleteAccount(ctx context.Context, userID string) ([]uuid.UUID, error)
}
