package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/config"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/middleware"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/services"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

type PortalAuthController struct {
	authService services.PortalAuthService
	cfg         *config.Config
}

func NewPortalAuthController(authService services.PortalAuthService, cfg *config.Config) *PortalAuthController {
	return &PortalAuthController{authService: authService, cfg: cfg}
}

var authValidate = validator.New()

// -------------------
// Lookup by phone
// -------------------

func (c *PortalAuthController) LookupByPhone(w http.ResponseWriter, r *http.Request) {
	var req dtos.LookupByPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := authValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Phone number is required", nil, err,
		)
		return
	}

	resp, err := c.authService.LookupByPhone(r.Context(), req.Phone, utils.ClientIP(r))
	if err != nil {
		c.respondAuthError(w, err, "Lookup failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// -------------------
// Send code
// -------------------

func (c *PortalAuthController) SendCode(w http.ResponseWriter, r *http.Request) {
	var req dtos.SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := authValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid contact or verification type", nil, err,
		)
		return
	}

	resp, err := c.authService.SendCode(r.Context(), req, utils.ClientIP(r))
	if err != nil {
		c.respondAuthError(w, err, "Failed to send verification code")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// -------------------
// Verify code
// -------------------

func (c *PortalAuthController) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := authValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid code format", nil, err,
		)
		return
	}

	resp, accessToken, refreshToken, err := c.authService.VerifyCode(r.Context(), req, utils.ClientIP(r))
	if err != nil {
		c.respondAuthError(w, err, "Verification failed")
		return
	}

	middleware.SetAuthCookies(
		w,
		accessToken,
		refreshToken,
		c.cfg.WebTokenExpiry,
		c.cfg.WebRefreshTokenExpiry,
		RefreshCookiePath,
		c.cfg.LDFlag_CORSHighSecurity,
	)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// -------------------
// shared error mapping
// -------------------

func (c *PortalAuthController) respondAuthError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, utils.ErrInvalidPhone):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Please enter a valid phone number.", nil,
		)
	case errors.Is(err, utils.ErrInvalidEmail):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Please enter a valid email address.", nil,
		)
	case errors.Is(err, utils.ErrCustomerNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound, "No account was found for that contact.", nil,
		)
	case errors.Is(err, utils.ErrNoCustomerData):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound, "No customer data returned.", nil,
		)
	case errors.Is(err, utils.ErrLookupTokenInvalid):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Lookup token is invalid or expired.", nil,
		)
	case errors.Is(err, utils.ErrCodeInvalidOrExpired):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired code", nil,
		)
	case errors.Is(err, utils.ErrRateLimitExceeded):
		utils.RespondErrorWithCode(
			w, http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded, "Too many requests. Please try again later.", nil,
		)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(
			w, http.StatusFailedDependency, utils.ErrCodeExternalServiceFailure, "An external service is unavailable. Please try again later.", nil, err,
		)
	default:
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, fallback, nil, err,
		)
	}
}
