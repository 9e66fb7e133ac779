package services

import (
	"context"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/repositories"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

// RateLimitCleanupService purges expired rate-limit counters.
type RateLimitCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type rateLimitCleanupService struct {
	rateLimitRepo repositories.RateLimitRepository
}

func NewRateLimitCleanupService(rateLimitRepo repositories.RateLimitRepository) RateLimitCleanupService {
	return &rateLimitCleanupService{rateLimitRepo: rateLimitRepo}
}

func (s *rateLimitCleanupService) CleanupDaily(ctx context.Context) error {
	if err := s.rateLimitRepo.CleanupExpired(ctx); err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup rate_limit_attempts")
		return err
	}
	utils.Logger.Info("Daily rate-limit cleanup completed successfully.")
	return nil
}
