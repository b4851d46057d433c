package ports

import (
	"context"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/google/uuid"
)

type BikeRepository interface {
	CreateBike(ctx context.Context, bike *domain.Bike) (*domain.Bike, error)
	GetBikeByID(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error)
	GetBikeBySerial(ctx context.Context, serial string) (*domain.Bike, error)
	// SerialExists ignores the bike with id excludeID (uuid.Nil excludes nothing).
	SerialExists(ctx context.Context, serial string, excludeID uuid.UUID) (bool, error)
	GetBikesByOwnerID(ctx context.Context, ownerID string) ([]*domain.Bike, error)
	GetBikesByOwnerIDs(ctx context.Context, ownerIDs []string) ([]*domain.Bike, error)
	UpdateBike(ctx context.Context, bikeID uuid.UUID, update domain.BikeUpdate) (*domain.Bike, error)
	// SaveStatus persists status and theft details and appends the given history entries.
	SaveStatus(ctx context.Context, bike *domain.Bike, appended []domain.StatusHistoryEntry) error
	UpdateOwnerContact(ctx context.Context, ownerID string, contact domain.OwnerContact) ([]uuid.UUID, error)
}
