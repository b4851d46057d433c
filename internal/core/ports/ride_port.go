package ports

import (
	"context"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/google/uuid"
)

type RideRepository interface {
	CreateRide(ctx context.Context, ride *domain.Ride) (*domain.Ride, error)
	GetRideByID(ctx context.Context, rideID uuid.UUID) (*domain.Ride, error)
	GetRidesByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Ride, error)
	GetUpcomingRides(ctx context.Context, from time.Time, limit int) ([]*domain.Ride, error)
	UpdateRide(ctx context.Context, ride *domain.Ride) (*domain.Ride, error)
	DeleteRide(ctx context.Context, rideID uuid.UUID) error
}
