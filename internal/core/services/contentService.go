package services

import (
	"context"
	"strings"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/go-playground/validator/v10"
)

const heroImagePrefix = "content/homepage"

type ContentService struct {
	contentRepo ports.ContentRepository
	storage     ports.ObjectStorage
	logger      ports.LoggerPort
	validate    *validator.Validate
	now         func() time.Time
}

func NewContentService(
	contentRepo ports.ContentRepository,
	storage ports.ObjectStorage,
	logger ports.LoggerPort,
	validate *validator.Validate,
) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
		storage:     storage,
		logger:      logger,
		validate:    validate,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetHomepageContent returns an empty document until an admin saves one.
func (s *ContentService) GetHomepageContent(ctx context.Context) (*domain.HomepageContent, error) {
	content, err := s.contentRepo.GetHomepageContent(ctx)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return &domain.HomepageContent{}, nil
		}
		return nil, internalError(s.logger, "Failed to get homepage content", err, nil)
	}
	return content, nil
}

// UpdateHomepageContent replaces the document. A replaced hero image is removed
// from storage on a best-effort basis.
func (s *ContentService) UpdateHomepageContent(ctx context.Context, caller *domain.TokenPayload, content domain.HomepageContent) (*domain.HomepageContent, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	content.Title = strings.TrimSpace(content.Title)
	content.Subtitle = strings.TrimSpace(content.Subtitle)
	content.HeroImageKey = trimPtr(content.HeroImageKey)
	if content.HeroImageKey != nil && *content.HeroImageKey == "" {
		content.HeroImageKey = nil
	}
	if content.HeroImageKey != nil {
		if !strings.HasPrefix(*content.HeroImageKey, heroImagePrefix+"/") {
			return nil, domain.ErrInvalidArgument("La clave de la imagen principal no es válida.")
		}
		url := s.storage.PublicURL(*content.HeroImageKey)
		content.HeroImageURL = &url
	} else {
		content.HeroImageURL = nil
	}
	if err := s.validate.Struct(content); err != nil {
		return nil, validationError(err)
	}

	previous, err := s.GetHomepageContent(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updatedBy := caller.UserID
	content.UpdatedBy = &updatedBy
	content.UpdatedAt = &now

	saved, err := s.contentRepo.SaveHomepageContent(ctx, &content)
	if err != nil {
		return nil, internalError(s.logger, "Failed to save homepage content", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}

	if old := previous.HeroImageKey; old != nil && (saved.HeroImageKey == nil || *saved.HeroImageKey != *old) {
		if err := s.storage.DeleteObject(ctx, *old); err != nil {
			s.logger.Warn("Failed to delete previous hero image", map[string]interface{}{
				"error": err.Error(),
				"key":   *old,
			})
		}
	}

	s.logger.Info("Homepage content updated", map[string]interface{}{
		"user_id": caller.UserID,
	})

	return saved, nil
}

func (s *ContentService) HeroImageUploadURL(ctx context.Context, caller *domain.TokenPayload, contentType string) (*domain.UploadTarget, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	target, err := newUploadTarget(ctx, s.storage, heroImagePrefix, contentType)
	if err != nil {
		return nil, internalError(s.logger, "Failed to presign hero image upload", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}
	return target, nil
}
