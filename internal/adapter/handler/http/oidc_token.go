package http

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sm8ta/webike_registry/internal/config"
	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCTokenService verifies ID tokens issued by an external identity provider.
// Tokens without a role claim belong to cyclists. The email is only taken from
// tokens whose email_verified claim is true.
type OIDCTokenService struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
	logger    ports.LoggerPort
}

func NewOIDCTokenService(ctx context.Context, cfg *config.OIDC, logger ports.LoggerPort) (*OIDCTokenService, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.ClientID == "",
	})

	return newOIDCTokenService(verifier, cfg.RoleClaim, logger), nil
}

func newOIDCTokenService(verifier *oidc.IDTokenVerifier, roleClaim string, logger ports.LoggerPort) *OIDCTokenService {
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &OIDCTokenService{
		verifier:  verifier,
		roleClaim: roleClaim,
		logger:    logger,
	}
}

func (s *OIDCTokenService) VerifyToken(ctx context.Context, token string) (*domain.TokenPayload, error) {
	idToken, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.Warn("Token verification failed", map[string]interface{}{
			"error":  err.Error(),
			"method": "VerifyToken",
		})
		return nil, err
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		s.logger.Error("Failed to extract claims from token", map[string]interface{}{
			"error":  err.Error(),
			"method": "VerifyToken",
		})
		return nil, err
	}

	return payloadFromClaims(idToken.Subject, claims, s.roleClaim)
}

func payloadFromClaims(subject string, claims map[string]interface{}, roleClaim string) (*domain.TokenPayload, error) {
	if subject == "" {
		return nil, errors.New("token has no subject")
	}

	role := domain.Cyclist
	if raw, ok := claims[roleClaim].(string); ok && raw != "" {
		role = domain.UserRole(raw)
		if !role.Valid() {
			return nil, errors.New("invalid role value")
		}
	}

	id, _ := claims["jti"].(string)
	if id == "" {
		id = subject
	}
	// Transfers are accepted by email, so an address the provider has not
	// verified is dropped.
	var email string
	if emailVerified(claims) {
		email, _ = claims["email"].(string)
	}

	return &domain.TokenPayload{
		ID:     id,
		UserID: subject,
		Email:  email,
		Role:   role,
	}, nil
}

// emailVerified accepts the boolean claim and the "true" string some providers send.
func emailVerified(claims map[string]interface{}) bool {
	switch v := claims["email_verified"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}
