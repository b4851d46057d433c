package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type BikeService struct {
	bikeRepo    ports.BikeRepository
	profileRepo ports.ProfileRepository
	logger      ports.LoggerPort
	validate    *validator.Validate
	cache       ports.CachePort
	events      ports.EventPublisher
	storage     ports.ObjectStorage
	now         func() time.Time
}

func NewBikeService(
	bikeRepo ports.BikeRepository,
	profileRepo ports.ProfileRepository,
	logger ports.LoggerPort,
	validate *validator.Validate,
	cache ports.CachePort,
	events ports.EventPublisher,
	storage ports.ObjectStorage,
) *BikeService {
	return &BikeService{
		bikeRepo:    bikeRepo,
		profileRepo: profileRepo,
		logger:      logger,
		validate:    validate,
		cache:       cache,
		events:      events,
		storage:     storage,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateBikeInput carries the attributes of a new bike. OwnerID is only honoured
// for shops registering an onboarded customer and for admins.
type CreateBikeInput struct {
	OwnerID              string
	SerialNumber         string
	Brand                string
	Model                string
	Color                string
	Description          *string
	Location             string
	BikeType             string
	OwnershipDocumentURL *string
	PhotoURLs            []string
}

// BikeLookup is the result of a public serial search. Exactly one of Full and Public is set.
type BikeLookup struct {
	Full   *domain.Bike
	Public *domain.PublicBike
}

func (s *BikeService) CreateBike(ctx context.Context, caller *domain.TokenPayload, in CreateBikeInput) (*domain.Bike, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	owner, shopID, err := s.resolveOwner(ctx, caller, strings.TrimSpace(in.OwnerID))
	if err != nil {
		return nil, err
	}

	bike := domain.NewBike(owner, domain.Bike{
		SerialNumber:         in.SerialNumber,
		Brand:                in.Brand,
		Model:                in.Model,
		Color:                strings.TrimSpace(in.Color),
		Description:          trimPtr(in.Description),
		Location:             strings.TrimSpace(in.Location),
		BikeType:             strings.TrimSpace(in.BikeType),
		OwnershipDocumentURL: in.OwnershipDocumentURL,
		PhotoURLs:            in.PhotoURLs,
		RegisteredByShopID:   shopID,
	}, s.now())

	if err := s.validate.Struct(bike); err != nil {
		s.logger.Debug("Bike validation failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": caller.UserID,
		})
		return nil, validationError(err)
	}

	exists, err := s.bikeRepo.SerialExists(ctx, bike.SerialNumber, uuid.Nil)
	if err != nil {
		return nil, internalError(s.logger, "Failed to check serial number", err, map[string]interface{}{
			"user_id": caller.UserID,
			"serial":  bike.SerialNumber,
		})
	}
	if exists {
		return nil, domain.ErrAlreadyExists("Ya existe una bicicleta registrada con el número de serie " + bike.SerialNumber + ".")
	}

	createdBike, err := s.bikeRepo.CreateBike(ctx, bike)
	if err != nil {
		return nil, internalError(s.logger, "Failed to create bike", err, map[string]interface{}{
			"user_id": caller.UserID,
			"serial":  bike.SerialNumber,
		})
	}

	s.logger.Info("Bike created successfully", map[string]interface{}{
		"bike_id":  createdBike.ID.String(),
		"owner_id": createdBike.OwnerID,
		"user_id":  caller.UserID,
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventBikeRegistered, caller.UserID, createdBike.ID.String(), map[string]interface{}{
		"serialNumber": createdBike.SerialNumber,
		"ownerId":      createdBike.OwnerID,
	}))

	return createdBike, nil
}

// resolveOwner picks the profile the new bike belongs to and the registering shop, if any.
func (s *BikeService) resolveOwner(ctx context.Context, caller *domain.TokenPayload, ownerID string) (*domain.UserProfile, *string, error) {
	if ownerID == "" || ownerID == caller.UserID {
		owner, err := s.profileRepo.GetProfileByID(ctx, caller.UserID)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, nil, domain.ErrFailedPrecondition("Completa tu perfil antes de registrar una bicicleta.")
			}
			return nil, nil, internalError(s.logger, "Failed to load owner profile", err, map[string]interface{}{
				"user_id": caller.UserID,
			})
		}
		return owner, nil, nil
	}

	if caller.Role != domain.BikeShop && !caller.IsAdmin() {
		return nil, nil, domain.ErrPermissionDenied("Solo puedes registrar bicicletas a tu nombre.")
	}

	owner, err := s.profileRepo.GetProfileByID(ctx, ownerID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, nil, domain.ErrNotFound("El propietario indicado no existe.")
		}
		return nil, nil, internalError(s.logger, "Failed to load owner profile", err, map[string]interface{}{
			"user_id":  caller.UserID,
			"owner_id": ownerID,
		})
	}

	if caller.IsAdmin() {
		return owner, owner.RegisteredByShopID, nil
	}
	if owner.RegisteredByShopID == nil || *owner.RegisteredByShopID != caller.UserID {
		return nil, nil, domain.ErrPermissionDenied("El cliente no fue registrado por tu tienda.")
	}
	shopID := caller.UserID
	return owner, &shopID, nil
}

// GetBikeByID is the cached lookup used once the route has authorized the caller.
func (s *BikeService) GetBikeByID(ctx context.Context, bikeID string) (*domain.Bike, error) {
	bikeUUID, err := parseID(bikeID, "bicicleta")
	if err != nil {
		return nil, err
	}

	cacheKey := bikeCacheKey(bikeUUID.String())
	cachedData, err := s.cache.Get(cacheKey)
	if err == nil {
		var cachedBike domain.Bike
		if err := json.Unmarshal(cachedData, &cachedBike); err == nil {
			s.logger.Debug("Bike found in cache", map[string]interface{}{
				"bike_id": bikeID,
			})
			return &cachedBike, nil
		}
	}

	bike, err := s.bikeRepo.GetBikeByID(ctx, bikeUUID)
	if err != nil {
		return nil, internalError(s.logger, "Failed to get bike", err, map[string]interface{}{
			"bike_id": bikeID,
		})
	}

	bikeData, err := json.Marshal(bike)
	if err != nil {
		s.logger.Warn("Failed to marshal bike for cache", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
	} else if err := s.cache.Set(cacheKey, bikeData, bikeCacheTTL); err != nil {
		s.logger.Warn("Failed to cache bike", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
	}

	return bike, nil
}

// GetBike returns the full record to the owner or an admin.
func (s *BikeService) GetBike(ctx context.Context, caller *domain.TokenPayload, bikeID string) (*domain.Bike, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	bike, err := s.GetBikeByID(ctx, bikeID)
	if err != nil {
		return nil, err
	}
	if !bike.IsOwnedBy(caller.UserID) && !caller.IsAdmin() {
		return nil, domain.ErrPermissionDenied("No tienes permiso para ver esta bicicleta.")
	}
	return bike, nil
}

func (s *BikeService) GetMyBikes(ctx context.Context, caller *domain.TokenPayload) ([]*domain.Bike, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	bikes, err := s.bikeRepo.GetBikesByOwnerID(ctx, caller.UserID)
	if err != nil {
		return nil, internalError(s.logger, "Failed to get bikes", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}

	s.logger.Info("Retrieved bikes for user", map[string]interface{}{
		"user_id":     caller.UserID,
		"bikes_count": len(bikes),
	})

	return bikes, nil
}

// GetPublicBikeBySerial returns nil when no bike matches. caller may be nil.
func (s *BikeService) GetPublicBikeBySerial(ctx context.Context, caller *domain.TokenPayload, serial string) (*BikeLookup, error) {
	serial = domain.NormalizeSerial(serial)
	if serial == "" {
		return nil, domain.ErrInvalidArgument("El número de serie es obligatorio.")
	}

	bike, err := s.bikeRepo.GetBikeBySerial(ctx, serial)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, nil
		}
		return nil, internalError(s.logger, "Failed to look up bike by serial", err, map[string]interface{}{
			"serial": serial,
		})
	}

	if caller != nil && bike.IsOwnedBy(caller.UserID) {
		return &BikeLookup{Full: bike}, nil
	}
	return &BikeLookup{Public: bike.PublicView()}, nil
}

func (s *BikeService) UpdateBike(ctx context.Context, caller *domain.TokenPayload, bikeID string, update domain.BikeUpdate) (*domain.Bike, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	bikeUUID, err := parseID(bikeID, "bicicleta")
	if err != nil {
		return nil, err
	}

	current, err := s.bikeRepo.GetBikeByID(ctx, bikeUUID)
	if err != nil {
		return nil, internalError(s.logger, "Failed to get bike", err, map[string]interface{}{
			"bike_id": bikeID,
			"user_id": caller.UserID,
		})
	}
	if !current.IsOwnedBy(caller.UserID) && !caller.IsAdmin() {
		return nil, domain.ErrPermissionDenied("No tienes permiso para modificar esta bicicleta.")
	}

	if err := s.checkUpdate(&update); err != nil {
		return nil, err
	}

	if update.SerialNumber != nil && *update.SerialNumber != current.SerialNumber {
		exists, err := s.bikeRepo.SerialExists(ctx, *update.SerialNumber, bikeUUID)
		if err != nil {
			return nil, internalError(s.logger, "Failed to check serial number", err, map[string]interface{}{
				"bike_id": bikeID,
				"serial":  *update.SerialNumber,
			})
		}
		if exists {
			return nil, domain.ErrAlreadyExists("Ya existe otra bicicleta con el número de serie " + *update.SerialNumber + ".")
		}
	}

	updatedBike, err := s.bikeRepo.UpdateBike(ctx, bikeUUID, update)
	if err != nil {
		return nil, internalError(s.logger, "Failed to update bike", err, map[string]interface{}{
			"bike_id": bikeID,
			"user_id": caller.UserID,
		})
	}

	invalidateBike(s.cache, s.logger, bikeUUID.String())

	s.logger.Info("Bike updated successfully", map[string]interface{}{
		"bike_id": bikeID,
	})

	return updatedBike, nil
}

// checkUpdate trims the update in place and rejects blanked required fields.
func (s *BikeService) checkUpdate(update *domain.BikeUpdate) error {
	required := []struct {
		value *string
		name  string
	}{
		{update.SerialNumber, "serialNumber"},
		{update.Brand, "brand"},
		{update.Model, "model"},
	}
	for _, f := range required {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return domain.ErrInvalidArgument("El campo " + f.name + " no puede estar vacío.")
		}
		if len(*f.value) > 100 {
			return domain.ErrInvalidArgument("El campo " + f.name + " es demasiado largo.")
		}
	}
	update.Color = trimPtr(update.Color)
	update.Location = trimPtr(update.Location)
	update.BikeType = trimPtr(update.BikeType)
	update.Description = trimPtr(update.Description)
	update.OwnershipDocumentURL = trimPtr(update.OwnershipDocumentURL)
	return nil
}

// SyncOwnerContact rewrites the denormalized owner fields on every bike owned by profile.
func (s *BikeService) SyncOwnerContact(ctx context.Context, profile *domain.UserProfile) (int, error) {
	ids, err := s.bikeRepo.UpdateOwnerContact(ctx, profile.ID, profile.Contact())
	if err != nil {
		return 0, internalError(s.logger, "Failed to sync owner contact", err, map[string]interface{}{
			"user_id": profile.ID,
		})
	}
	for _, id := range ids {
		invalidateBike(s.cache, s.logger, id.String())
	}

	s.logger.Info("Owner contact synced", map[string]interface{}{
		"user_id":       profile.ID,
		"bikes_updated": len(ids),
	})

	return len(ids), nil
}

// PhotoUploadURL hands the owner a presigned URL for a new bike photo.
func (s *BikeService) PhotoUploadURL(ctx context.Context, caller *domain.TokenPayload, bikeID, contentType string) (*domain.UploadTarget, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	bike, err := s.GetBikeByID(ctx, bikeID)
	if err != nil {
		return nil, err
	}
	if !bike.IsOwnedBy(caller.UserID) {
		return nil, domain.ErrPermissionDenied("Solo el propietario puede subir fotos.")
	}

	target, err := newUploadTarget(ctx, s.storage, "bikes/"+bike.ID.String(), contentType)
	if err != nil {
		return nil, internalError(s.logger, "Failed to presign photo upload", err, map[string]interface{}{
			"bike_id": bikeID,
			"user_id": caller.UserID,
		})
	}
	return target, nil
}
