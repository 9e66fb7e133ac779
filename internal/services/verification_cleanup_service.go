package services

import (
	"context"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/repositories"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

// VerificationCleanupService handles purging expired verification codes
// and lookup tokens.
type VerificationCleanupService interface {
	// CleanupDaily deletes expired verification codes and consumed or
	// expired lookup tokens.
	CleanupDaily(ctx context.Context) error
}

type verificationCleanupService struct {
	verificationRepo repositories.VerificationRepository
	lookupRepo       repositories.LookupTokenRepository
}

// NewVerificationCleanupService constructs a new instance of verificationCleanupService.
func NewVerificationCleanupService(
	verificationRepo repositories.VerificationRepository,
	lookupRepo repositories.LookupTokenRepository,
) VerificationCleanupService {
	return &verificationCleanupService{
		verificationRepo: verificationRepo,
		lookupRepo:       lookupRepo,
	}
}

// CleanupDaily deletes expired rows and logs any errors encountered.
func (s *verificationCleanupService) CleanupDaily(ctx context.Context) error {
	logger := utils.Logger

	if err := s.verificationRepo.CleanupExpired(ctx); err != nil {
		logger.WithError(err).Error("Failed to cleanup verification_codes")
		return err
	}
	if err := s.lookupRepo.CleanupExpired(ctx); err != nil {
		logger.WithError(err).Error("Failed to cleanup lookup_tokens")
		return err
	}

	logger.Info("Daily verification-codes cleanup completed successfully.")
	return nil
}
