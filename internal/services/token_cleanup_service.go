package services

import (
	"context"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/repositories"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

// TokenCleanupService purges expired and revoked refresh tokens.
type TokenCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type tokenCleanupService struct {
	tokenRepo repositories.TokenRepository
}

func NewTokenCleanupService(tokenRepo repositories.TokenRepository) TokenCleanupService {
	return &tokenCleanupService{tokenRepo: tokenRepo}
}

func (s *tokenCleanupService) CleanupDaily(ctx context.Context) error {
	if err := s.tokenRepo.CleanupExpired(ctx); err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup refresh_tokens")
		return err
	}
	utils.Logger.Info("Daily refresh-token cleanup completed successfully.")
	return nil
}
