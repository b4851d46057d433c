package services

import (
	"context"
	"strings"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/go-playground/validator/v10"
)

// LifecycleService applies the theft and recovery transitions of a bike.
type LifecycleService struct {
	bikeRepo ports.BikeRepository
	logger   ports.LoggerPort
	validate *validator.Validate
	cache    ports.CachePort
	events   ports.EventPublisher
	now      func() time.Time
}

func NewLifecycleService(
	bikeRepo ports.BikeRepository,
	logger ports.LoggerPort,
	validate *validator.Validate,
	cache ports.CachePort,
	events ports.EventPublisher,
) *LifecycleService {
	return &LifecycleService{
		bikeRepo: bikeRepo,
		logger:   logger,
		validate: validate,
		cache:    cache,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *LifecycleService) ReportStolen(ctx context.Context, caller *domain.TokenPayload, bikeID string, details domain.TheftDetails) (*domain.Bike, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	details.TheftLocationState = strings.TrimSpace(details.TheftLocationState)
	details.TheftLocationCountry = strings.TrimSpace(details.TheftLocationCountry)
	details.TheftIncidentDetails = strings.TrimSpace(details.TheftIncidentDetails)
	details.TheftPerpetratorDetails = strings.TrimSpace(details.TheftPerpetratorDetails)
	details.GeneralNotes = strings.TrimSpace(details.GeneralNotes)
	if err := s.validate.Struct(details); err != nil {
		return nil, validationError(err)
	}

	bike, err := s.loadOwnedBike(ctx, caller, bikeID)
	if err != nil {
		return nil, err
	}

	entry, err := bike.ReportStolen(details, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.bikeRepo.SaveStatus(ctx, bike, historyEntries(entry)); err != nil {
		return nil, internalError(s.logger, "Failed to report bike stolen", err, map[string]interface{}{
			"bike_id": bikeID,
			"user_id": caller.UserID,
		})
	}

	invalidateBike(s.cache, s.logger, bike.ID.String())

	s.logger.Info("Bike reported stolen", map[string]interface{}{
		"bike_id": bike.ID.String(),
		"user_id": caller.UserID,
		"state":   details.TheftLocationState,
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventBikeStolen, caller.UserID, bike.ID.String(), map[string]interface{}{
		"serialNumber":       bike.SerialNumber,
		"theftLocationState": details.TheftLocationState,
	}))

	return bike, nil
}

func (s *LifecycleService) MarkRecovered(ctx context.Context, caller *domain.TokenPayload, bikeID string) (*domain.Bike, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	bike, err := s.loadOwnedBike(ctx, caller, bikeID)
	if err != nil {
		return nil, err
	}

	entry, err := bike.MarkRecovered(s.now())
	if err != nil {
		return nil, err
	}
	if err := s.bikeRepo.SaveStatus(ctx, bike, historyEntries(entry)); err != nil {
		return nil, internalError(s.logger, "Failed to mark bike recovered", err, map[string]interface{}{
			"bike_id": bikeID,
			"user_id": caller.UserID,
		})
	}

	invalidateBike(s.cache, s.logger, bike.ID.String())

	s.logger.Info("Bike marked recovered", map[string]interface{}{
		"bike_id": bike.ID.String(),
		"user_id": caller.UserID,
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventBikeRecovered, caller.UserID, bike.ID.String(), map[string]interface{}{
		"serialNumber": bike.SerialNumber,
	}))

	return bike, nil
}

// loadOwnedBike answers permission-denied for both a missing bike and a foreign one.
func (s *LifecycleService) loadOwnedBike(ctx context.Context, caller *domain.TokenPayload, bikeID string) (*domain.Bike, error) {
	bikeUUID, err := parseID(bikeID, "bicicleta")
	if err != nil {
		return nil, err
	}
	bike, err := s.bikeRepo.GetBikeByID(ctx, bikeUUID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.ErrPermissionDenied("No tienes permiso para modificar esta bicicleta.")
		}
		return nil, internalError(s.logger, "Failed to get bike", err, map[string]interface{}{
			"bike_id": bikeID,
			"user_id": caller.UserID,
		})
	}
	if !bike.IsOwnedBy(caller.UserID) {
		return nil, domain.ErrPermissionDenied("No tienes permiso para modificar esta bicicleta.")
	}
	return bike, nil
}
