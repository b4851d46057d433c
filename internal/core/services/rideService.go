package services

import (
	"context"
	"strings"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const upcomingRidesLimit = 100

type RideService struct {
	rideRepo ports.RideRepository
	logger   ports.LoggerPort
	validate *validator.Validate
	now      func() time.Time
}

func NewRideService(
	rideRepo ports.RideRepository,
	logger ports.LoggerPort,
	validate *validator.Validate,
) *RideService {
	return &RideService{
		rideRepo: rideRepo,
		logger:   logger,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type RideInput struct {
	ID           string
	Title        string
	Description  string
	MeetingPoint string
	StartsAt     time.Time
	DistanceKm   float64
	Difficulty   domain.RideDifficulty
}

// CreateOrUpdateRide creates a ride organized by the caller, or updates the ride
// named by in.ID when the caller organizes it (admins may update any ride).
func (s *RideService) CreateOrUpdateRide(ctx context.Context, caller *domain.TokenPayload, in RideInput) (*domain.Ride, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !domain.CanOrganizeRides(caller.Role) {
		return nil, domain.ErrPermissionDenied("Solo tiendas, ONG y administradores pueden publicar rodadas.")
	}

	ride := &domain.Ride{
		OrganizerID:  caller.UserID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		MeetingPoint: strings.TrimSpace(in.MeetingPoint),
		StartsAt:     in.StartsAt.UTC(),
		DistanceKm:   in.DistanceKm,
		Difficulty:   in.Difficulty,
	}

	var existing *domain.Ride
	if strings.TrimSpace(in.ID) != "" {
		rideUUID, err := parseID(in.ID, "rodada")
		if err != nil {
			return nil, err
		}
		existing, err = s.loadOwnedRide(ctx, caller, rideUUID)
		if err != nil {
			return nil, err
		}
		ride.ID = existing.ID
		ride.OrganizerID = existing.OrganizerID
		ride.CreatedAt = existing.CreatedAt
	}

	if err := s.validate.Struct(ride); err != nil {
		s.logger.Debug("Ride validation failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": caller.UserID,
		})
		return nil, validationError(err)
	}

	now := s.now()
	ride.UpdatedAt = now
	if existing == nil {
		ride.ID = uuid.New()
		ride.CreatedAt = now

		createdRide, err := s.rideRepo.CreateRide(ctx, ride)
		if err != nil {
			return nil, internalError(s.logger, "Failed to create ride", err, map[string]interface{}{
				"user_id": caller.UserID,
			})
		}
		s.logger.Info("Ride created successfully", map[string]interface{}{
			"ride_id": createdRide.ID.String(),
			"user_id": caller.UserID,
		})
		return createdRide, nil
	}

	updatedRide, err := s.rideRepo.UpdateRide(ctx, ride)
	if err != nil {
		return nil, internalError(s.logger, "Failed to update ride", err, map[string]interface{}{
			"ride_id": ride.ID.String(),
			"user_id": caller.UserID,
		})
	}
	s.logger.Info("Ride updated successfully", map[string]interface{}{
		"ride_id": updatedRide.ID.String(),
		"user_id": caller.UserID,
	})
	return updatedRide, nil
}

func (s *RideService) DeleteRide(ctx context.Context, caller *domain.TokenPayload, rideID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	rideUUID, err := parseID(rideID, "rodada")
	if err != nil {
		return err
	}
	if _, err := s.loadOwnedRide(ctx, caller, rideUUID); err != nil {
		return err
	}

	if err := s.rideRepo.DeleteRide(ctx, rideUUID); err != nil {
		return internalError(s.logger, "Failed to delete ride", err, map[string]interface{}{
			"ride_id": rideID,
			"user_id": caller.UserID,
		})
	}

	s.logger.Info("Ride deleted successfully", map[string]interface{}{
		"ride_id": rideID,
		"user_id": caller.UserID,
	})
	return nil
}

func (s *RideService) GetMyRides(ctx context.Context, caller *domain.TokenPayload) ([]*domain.Ride, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	rides, err := s.rideRepo.GetRidesByOrganizerID(ctx, caller.UserID)
	if err != nil {
		return nil, internalError(s.logger, "Failed to get rides", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}
	return rides, nil
}

func (s *RideService) GetUpcomingRides(ctx context.Context) ([]*domain.Ride, error) {
	rides, err := s.rideRepo.GetUpcomingRides(ctx, s.now(), upcomingRidesLimit)
	if err != nil {
		return nil, internalError(s.logger, "Failed to get upcoming rides", err, nil)
	}
	return rides, nil
}

func (s *RideService) loadOwnedRide(ctx context.Context, caller *domain.TokenPayload, rideID uuid.UUID) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetRideByID(ctx, rideID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.ErrNotFound("La rodada no existe.")
		}
		return nil, internalError(s.logger, "Failed to get ride", err, map[string]interface{}{
			"ride_id": rideID.String(),
			"user_id": caller.UserID,
		})
	}
	if !ride.IsOrganizedBy(caller.UserID) && !caller.IsAdmin() {
		return nil, domain.ErrPermissionDenied("Solo el organizador puede modificar esta rodada.")
	}
	return ride, nil
}
