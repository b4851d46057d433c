package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"golang.org/x/sync/errgroup"
)

const (
	ownerBatchSize     = 30
	ownerBatchParallel = 4
)

type AnalyticsService struct {
	profileRepo ports.ProfileRepository
	bikeRepo    ports.BikeRepository
	logger      ports.LoggerPort
}

func NewAnalyticsService(profileRepo ports.ProfileRepository, bikeRepo ports.BikeRepository, logger ports.LoggerPort) *AnalyticsService {
	return &AnalyticsService{
		profileRepo: profileRepo,
		bikeRepo:    bikeRepo,
		logger:      logger,
	}
}

// GetAttributionStats aggregates the users attributed to attributionID and their
// bikes. Shops and NGOs may only query themselves; an empty id means the caller.
func (s *AnalyticsService) GetAttributionStats(ctx context.Context, caller *domain.TokenPayload, attributionID string, r domain.DateRange) (*domain.AttributionStats, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if attributionID == "" {
		attributionID = caller.UserID
	}
	switch {
	case caller.IsAdmin():
	case caller.Role == domain.BikeShop || caller.Role == domain.NGO:
		if attributionID != caller.UserID {
			return nil, domain.ErrPermissionDenied("Solo puedes consultar las estadísticas de tu organización.")
		}
	default:
		return nil, domain.ErrPermissionDenied("No tienes acceso a las estadísticas.")
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return nil, domain.ErrInvalidArgument("El rango de fechas no es válido.")
	}

	users, err := s.profileRepo.ListAttributedProfiles(ctx, attributionID)
	if err != nil {
		return nil, s.aggregationError(err, attributionID)
	}

	ownerIDs := make([]string, 0, len(users))
	for _, u := range users {
		ownerIDs = append(ownerIDs, u.ID)
	}
	bikes, err := s.fetchBikes(ctx, ownerIDs)
	if err != nil {
		return nil, s.aggregationError(err, attributionID)
	}

	stats := domain.AggregateAttribution(attributionID, users, bikes, r)

	s.logger.Info("Attribution stats computed", map[string]interface{}{
		"attribution_id": attributionID,
		"users":          stats.AttributedUsers,
		"bikes":          len(bikes),
	})

	return stats, nil
}

// fetchBikes loads bikes for ownerIDs in fixed-size batches. Any failed batch fails the whole call.
func (s *AnalyticsService) fetchBikes(ctx context.Context, ownerIDs []string) ([]*domain.Bike, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ownerBatchParallel)

	var mu sync.Mutex
	var bikes []*domain.Bike
	for start := 0; start < len(ownerIDs); start += ownerBatchSize {
		end := start + ownerBatchSize
		if end > len(ownerIDs) {
			end = len(ownerIDs)
		}
		batch := ownerIDs[start:end]
		g.Go(func() error {
			found, err := s.bikeRepo.GetBikesByOwnerIDs(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			bikes = append(bikes, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bikes, nil
}

func (s *AnalyticsService) aggregationError(err error, attributionID string) error {
	code := "unknown"
	if de, ok := domain.AsError(err); ok {
		code = string(de.Kind)
		if de.Code != "" {
			code = de.Code
		}
	}
	s.logger.Error("Failed to aggregate attribution stats", map[string]interface{}{
		"error":          err.Error(),
		"attribution_id": attributionID,
		"code":           code,
	})
	return &domain.Error{
		Kind:    domain.KindInternal,
		Message: fmt.Sprintf("No se pudieron calcular las estadísticas (código: %s).", code),
		Code:    code,
		Err:     err,
	}
}
