package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	verifier         TokenVerifier
	blacklistService *TokenBlacklistService
	logger           *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(verifier TokenVerifier, blacklistService *TokenBlacklistService, logger *zap.Logger) AuthService {
	return &authService{
		verifier:         verifier,
		blacklistService: blacklistService,
		logger:           logger,
	}
}

// Authenticate validates a token and checks it has not been revoked
func (s *authService) Authenticate(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	claims, err := s.verifier.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	revoked, err := s.blacklistService.IsTokenBlacklisted(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token has been revoked", ErrUnauthorized)
	}

	return claims, nil
}

// Logout revokes the token until it would have expired anyway
func (s *authService) Logout(ctx context.Context, token string, claims *domain.TokenClaims) error {
	ttl := claims.TTL()
	if ttl == 0 {
		return nil
	}

	if err := s.blacklistService.AddToken(ctx, token, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Info("Token revoked", zap.String("user_id", claims.UserID))
	return nil
}
