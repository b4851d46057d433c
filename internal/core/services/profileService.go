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

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ProfileService owns the Profile Store and the admin account operations.
type ProfileService struct {
	profileRepo ports.ProfileRepository
	bikes       *BikeService
	logger      ports.LoggerPort
	validate    *validator.Validate
	cache       ports.CachePort
	events      ports.EventPublisher
	now         func() time.Time
}

func NewProfileService(
	profileRepo ports.ProfileRepository,
	bikes *BikeService,
	logger ports.LoggerPort,
	validate *validator.Validate,
	cache ports.CachePort,
	events ports.EventPublisher,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		bikes:       bikes,
		logger:      logger,
		validate:    validate,
		cache:       cache,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	FirstName  string
	LastName   string
	Phone      string
	ReferrerID *string
}

// Register creates the caller's profile on first sign-in. An existing profile is
// returned unchanged with created=false.
func (s *ProfileService) Register(ctx context.Context, caller *domain.TokenPayload, in RegisterInput) (*domain.UserProfile, bool, error) {
	if err := requireCaller(caller); err != nil {
		return nil, false, err
	}

	existing, err := s.profileRepo.GetProfileByID(ctx, caller.UserID)
	if err == nil {
		return existing, false, nil
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		return nil, false, internalError(s.logger, "Failed to load profile", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}

	role := caller.Role
	if !role.Valid() {
		role = domain.Cyclist
	}
	now := s.now()
	profile := &domain.UserProfile{
		ID:        caller.UserID,
		Role:      role,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     domain.FoldEmail(caller.Email),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if ref := trimPtr(in.ReferrerID); ref != nil && *ref != "" {
		if *ref == caller.UserID {
			return nil, false, domain.ErrInvalidArgument("No puedes referirte a ti mismo.")
		}
		if _, err := s.profileRepo.GetProfileByID(ctx, *ref); err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, false, domain.ErrInvalidArgument("El código de referencia no es válido.")
			}
			return nil, false, internalError(s.logger, "Failed to load referrer", err, map[string]interface{}{
				"user_id":     caller.UserID,
				"referrer_id": *ref,
			})
		}
		profile.ReferrerID = ref
	}

	if err := s.validate.Struct(profile); err != nil {
		return nil, false, validationError(err)
	}

	created, err := s.profileRepo.CreateProfile(ctx, profile)
	if err != nil {
		if domain.IsKind(err, domain.KindAlreadyExists) {
			return nil, false, domain.ErrAlreadyExists("Ya existe una cuenta con ese correo.")
		}
		return nil, false, internalError(s.logger, "Failed to create profile", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}

	if profile.ReferrerID != nil {
		if err := s.profileRepo.IncrementReferralCount(ctx, *profile.ReferrerID); err != nil {
			s.logger.Warn("Failed to increment referral count", map[string]interface{}{
				"error":       err.Error(),
				"referrer_id": *profile.ReferrerID,
			})
		}
	}

	s.logger.Info("Profile created", map[string]interface{}{
		"user_id": created.ID,
		"role":    string(created.Role),
	})

	return created, true, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, caller *domain.TokenPayload) (*domain.UserProfile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetProfileByID(ctx, caller.UserID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.ErrNotFound("Perfil no encontrado.")
		}
		return nil, internalError(s.logger, "Failed to load profile", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}
	return profile, nil
}

// UpdateProfile edits the caller's profile and re-syncs the owner contact copied
// onto their bikes. It returns the number of bikes rewritten.
func (s *ProfileService) UpdateProfile(ctx context.Context, caller *domain.TokenPayload, update domain.ProfileUpdate) (*domain.UserProfile, int, error) {
	if err := requireCaller(caller); err != nil {
		return nil, 0, err
	}

	update.FirstName = trimPtr(update.FirstName)
	update.LastName = trimPtr(update.LastName)
	update.Phone = trimPtr(update.Phone)
	update.OrganizationName = trimPtr(update.OrganizationName)
	for _, v := range []*string{update.FirstName, update.LastName} {
		if v != nil && len(*v) > 100 {
			return nil, 0, domain.ErrInvalidArgument("El nombre es demasiado largo.")
		}
	}
	if update.Phone != nil && len(*update.Phone) > 30 {
		return nil, 0, domain.ErrInvalidArgument("El teléfono es demasiado largo.")
	}

	profile, err := s.profileRepo.UpdateProfile(ctx, caller.UserID, update)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, 0, domain.ErrNotFound("Perfil no encontrado.")
		}
		return nil, 0, internalError(s.logger, "Failed to update profile", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}

	synced, err := s.bikes.SyncOwnerContact(ctx, profile)
	if err != nil {
		return nil, 0, err
	}

	return profile, synced, nil
}

// UpdateUserRole changes another user's role. The identity provider picks the
// change up from the role_changed event.
func (s *ProfileService) UpdateUserRole(ctx context.Context, caller *domain.TokenPayload, userID string, role domain.UserRole) (string, error) {
	if err := requireAdmin(caller); err != nil {
		return "", err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", domain.ErrInvalidArgument("El identificador de usuario es obligatorio.")
	}
	if !role.Valid() {
		return "", domain.ErrInvalidArgument("Rol no válido: " + string(role))
	}

	profile, err := s.profileRepo.UpdateRole(ctx, userID, role)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return "", domain.ErrNotFound("Usuario no encontrado.")
		}
		return "", internalError(s.logger, "Failed to update user role", err, map[string]interface{}{
			"user_id":   caller.UserID,
			"target_id": userID,
		})
	}

	s.logger.Info("User role updated", map[string]interface{}{
		"user_id":   caller.UserID,
		"target_id": userID,
		"role":      string(role),
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventRoleChanged, caller.UserID, userID, map[string]interface{}{
		"role": string(profile.Role),
	}))

	// Authorization reads the role from the token, so the change applies from the next token.
	return "Rol actualizado a " + string(profile.Role) + " para el usuario " + userID +
		". El cambio aplica cuando el usuario obtenga un nuevo token.", nil
}

// DeleteUserAccount removes a profile together with its bikes.
func (s *ProfileService) DeleteUserAccount(ctx context.Context, caller *domain.TokenPayload, userID string) (string, error) {
	if err := requireAdmin(caller); err != nil {
		return "", err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", domain.ErrInvalidArgument("El identificador de usuario es obligatorio.")
	}
	if userID == caller.UserID {
		return "", domain.ErrFailedPrecondition("No puedes eliminar tu propia cuenta.")
	}

	bikeIDs, err := s.profileRepo.DeleteAccount(ctx, userID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return "", domain.ErrNotFound("Usuario no encontrado.")
		}
		return "", internalError(s.logger, "Failed to delete user account", err, map[string]interface{}{
			"user_id":   caller.UserID,
			"target_id": userID,
		})
	}
	for _, id := range bikeIDs {
		invalidateBike(s.cache, s.logger, id.String())
	}

	s.logger.Info("User account deleted", map[string]interface{}{
		"user_id":       caller.UserID,
		"target_id":     userID,
		"bikes_deleted": len(bikeIDs),
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventAccountDeleted, caller.UserID, userID, map[string]interface{}{
		"bikesDeleted": len(bikeIDs),
	}))

	return "La cuenta del usuario " + userID + " y sus bicicletas fueron eliminadas.", nil
}

// CreateOrganizationAccount provisions a bike shop or NGO account. The identity
// provider creates the login from the account.created event.
func (s *ProfileService) CreateOrganizationAccount(ctx context.Context, caller *domain.TokenPayload, role domain.UserRole, in domain.AccountInput) (*domain.UserProfile, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if role != domain.BikeShop && role != domain.NGO {
		return nil, domain.ErrInvalidArgument("Solo se pueden crear cuentas de tienda u ONG.")
	}
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)
	if in.OrganizationName == "" {
		return nil, domain.ErrInvalidArgument("El nombre de la organización es obligatorio.")
	}

	profile, err := s.provision(ctx, caller, role, in, nil)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// OnboardCustomer lets a bike shop create a cyclist account attributed to it.
func (s *ProfileService) OnboardCustomer(ctx context.Context, caller *domain.TokenPayload, in domain.AccountInput) (*domain.UserProfile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if caller.Role != domain.BikeShop {
		return nil, domain.ErrPermissionDenied("Solo las tiendas pueden registrar clientes.")
	}
	shopID := caller.UserID
	return s.provision(ctx, caller, domain.Cyclist, in, &shopID)
}

func (s *ProfileService) provision(ctx context.Context, caller *domain.TokenPayload, role domain.UserRole, in domain.AccountInput, shopID *string) (*domain.UserProfile, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = domain.FoldEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	now := s.now()
	profile := &domain.UserProfile{
		ID:                 uuid.NewString(),
		Role:               role,
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		Email:              in.Email,
		Phone:              in.Phone,
		RegisteredByShopID: shopID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if in.OrganizationName != "" {
		org := in.OrganizationName
		profile.OrganizationName = &org
	}

	created, err := s.profileRepo.CreateProfile(ctx, profile)
	if err != nil {
		if domain.IsKind(err, domain.KindAlreadyExists) {
			return nil, domain.ErrAlreadyExists("Ya existe una cuenta con el correo " + in.Email + ".")
		}
		return nil, internalError(s.logger, "Failed to provision account", err, map[string]interface{}{
			"user_id": caller.UserID,
			"email":   in.Email,
			"role":    string(role),
		})
	}

	s.logger.Info("Account provisioned", map[string]interface{}{
		"user_id":    caller.UserID,
		"account_id": created.ID,
		"role":       string(role),
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventAccountCreated, caller.UserID, created.ID, map[string]interface{}{
		"email": created.Email,
		"role":  string(created.Role),
	}))

	return created, nil
}

func (s *ProfileService) ListProfiles(ctx context.Context, caller *domain.TokenPayload, role domain.UserRole, limit, offset int) ([]*domain.UserProfile, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, domain.ErrInvalidArgument("Rol no válido: " + string(role))
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	profiles, err := s.profileRepo.ListProfiles(ctx, role, limit, offset)
	if err != nil {
		return nil, internalError(s.logger, "Failed to list profiles", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}
	return profiles, nil
}
