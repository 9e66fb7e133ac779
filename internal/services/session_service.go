package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/config"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/middleware"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/models"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/repositories"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

// ---------------------------------------------------------------------
// SessionService interface
// ---------------------------------------------------------------------

// SessionService issues and rotates the portal's JWT access + opaque
// refresh token pairs. Tokens always carry the full verified customer-ID
// set so switching accounts never re-verifies.
type SessionService interface {
	IssueSession(
		ctx context.Context,
		activeCustomerID int64,
		verifiedIDs []int64,
		clientIP string,
	) (accessToken string, refreshToken string, err error)

	RefreshSession(
		ctx context.Context,
		refreshTokenString string,
		clientIP string,
	) (accessToken string, refreshToken string, err error)

	Logout(ctx context.Context, refreshTokenString string) error
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type sessionService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	tokenRepo  repositories.TokenRepository
	cfg        *config.Config
}

func NewSessionService(cfg *config.Config, tokenRepo repositories.TokenRepository) SessionService {
	return &sessionService{
		privateKey: cfg.RSAPrivateKey,
		publicKey:  cfg.RSAPublicKey,
		tokenRepo:  tokenRepo,
		cfg:        cfg,
	}
}

func (s *sessionService) IssueSession(
	ctx context.Context,
	activeCustomerID int64,
	verifiedIDs []int64,
	clientIP string,
) (string, string, error) {

	if len(verifiedIDs) == 0 {
		return "", "", errors.New("empty verified customer set")
	}

	accessToken, err := s.generateAccessToken(activeCustomerID, verifiedIDs, clientIP)
	if err != nil {
		return "", "", err
	}

	rt := &models.RefreshToken{
		ID:          uuid.New(),
		CustomerID:  activeCustomerID,
		CustomerIDs: verifiedIDs,
		Token:       generateSecureToken(64),
		IPAddress:   clientIP,
		ExpiresAt:   time.Now().Add(s.cfg.WebRefreshTokenExpiry),
		CreatedAt:   time.Now(),
		Revoked:     false,
	}
	if err := s.tokenRepo.CreateRefreshToken(ctx, rt); err != nil {
		return "", "", err
	}

	return accessToken, rt.Token, nil
}

func (s *sessionService) RefreshSession(
	ctx context.Context,
	refreshTokenString string,
	clientIP string,
) (string, string, error) {

	oldToken, err := s.tokenRepo.GetRefreshToken(ctx, refreshTokenString)
	if err != nil || oldToken == nil || oldToken.Revoked {
		utils.Logger.WithError(err).Error("invalid or missing refresh token in sessionService.RefreshSession")
		return "", "", errors.New("invalid refresh token")
	}

	if oldToken.IsExpired() {
		utils.Logger.Error("refresh token expired in sessionService.RefreshSession")
		return "", "", errors.New("refresh token expired")
	}

	if oldToken.IPAddress != "" && oldToken.IPAddress != clientIP {
		utils.Logger.Error("IP mismatch in sessionService.RefreshSession")
		return "", "", errors.New("ip mismatch")
	}

	// remove old refresh
	if err := s.tokenRepo.RemoveRefreshToken(ctx, oldToken.Token); err != nil {
		utils.Logger.WithError(err).Error("failed to remove old refresh token in sessionService.RefreshSession")
		return "", "", errors.New("failed to remove old token")
	}

	return s.IssueSession(ctx, oldToken.CustomerID, oldToken.CustomerIDs, clientIP)
}

func (s *sessionService) Logout(ctx context.Context, refreshTokenString string) error {
	oldToken, err := s.tokenRepo.GetRefreshToken(ctx, refreshTokenString)
	if err != nil {
		// already not found => no-op
		return nil
	}
	if oldToken == nil {
		return nil
	}

	if err := s.tokenRepo.RemoveRefreshToken(ctx, oldToken.Token); err != nil {
		utils.Logger.WithError(err).Error("failed to remove token in sessionService.Logout")
		return errors.New("logout server error")
	}
	return nil
}

func (s *sessionService) generateAccessToken(
	activeCustomerID int64,
	verifiedIDs []int64,
	clientIP string,
) (string, error) {

	claims := jwt.MapClaims{
		"iss":  middleware.TokenIssuer,
		"sub":  strconv.FormatInt(activeCustomerID, 10),
		"cids": verifiedIDs,
		"ip":   clientIP,
		"exp":  time.Now().Add(s.cfg.WebTokenExpiry).Unix(),
		"iat":  time.Now().Unix(),
		"jti":  uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}
