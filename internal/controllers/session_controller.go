package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/config"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/crm"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/middleware"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/services"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

type SessionController struct {
	sessions  services.SessionService
	directory services.CustomerDirectory
	cfg       *config.Config
}

func NewSessionController(
	sessions services.SessionService,
	directory services.CustomerDirectory,
	cfg *config.Config,
) *SessionController {
	return &SessionController{sessions: sessions, directory: directory, cfg: cfg}
}

// -------------------
// Session check
// -------------------

// Session reports whether the caller holds a valid access cookie. Every
// failure mode is a plain 200 {authenticated:false} so the portal shell
// can render the login wizard without special-casing status codes.
func (c *SessionController) Session(w http.ResponseWriter, r *http.Request) {
	unauthenticated := dtos.SessionResponse{Authenticated: false}

	cookie, err := r.Cookie(middleware.AccessTokenCookieName)
	if err != nil || cookie.Value == "" {
		utils.RespondWithJSON(w, http.StatusOK, unauthenticated)
		return
	}

	tok, err := middleware.ValidateToken(cookie.Value, utils.ClientIP(r), c.cfg.RSAPublicKey)
	if err != nil || !tok.Valid {
		utils.RespondWithJSON(w, http.StatusOK, unauthenticated)
		return
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		utils.RespondWithJSON(w, http.StatusOK, unauthenticated)
		return
	}
	sub, _ := claims["sub"].(string)
	customerID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusOK, unauthenticated)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.SessionResponse{
		Authenticated: true,
		CustomerID:    customerID,
	})
}

// -------------------
// Logout
// -------------------

// Logout always succeeds: the refresh token is revoked when present and
// both cookies are cleared regardless.
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		if logoutErr := c.sessions.Logout(r.Context(), cookie.Value); logoutErr != nil {
			utils.Logger.WithError(logoutErr).Warn("Failed to revoke refresh token on logout")
		}
	}

	middleware.ClearAuthCookies(w, RefreshCookiePath, c.cfg.LDFlag_CORSHighSecurity)
	utils.RespondWithJSON(w, http.StatusOK, dtos.LogoutResponse{Message: "Logged out"})
}

// -------------------
// Refresh
// -------------------

func (c *SessionController) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing refresh token cookie", nil,
		)
		return
	}

	access, refresh, err := c.sessions.RefreshSession(r.Context(), cookie.Value, utils.ClientIP(r))
	if err != nil {
		middleware.ClearAuthCookies(w, RefreshCookiePath, c.cfg.LDFlag_CORSHighSecurity)
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid refresh token", nil, err,
		)
		return
	}

	middleware.SetAuthCookies(
		w,
		access,
		refresh,
		c.cfg.WebTokenExpiry,
		c.cfg.WebRefreshTokenExpiry,
		RefreshCookiePath,
		c.cfg.LDFlag_CORSHighSecurity,
	)
	utils.RespondWithJSON(w, http.StatusOK, dtos.RefreshTokenResponse{Message: "Token refreshed"})
}

// -------------------
// Switch account
// -------------------

// SwitchAccount re-issues the session for another customer the holder
// already verified. The target must be inside the token's verified set;
// no verification code is ever sent here.
func (c *SessionController) SwitchAccount(w http.ResponseWriter, r *http.Request) {
	var req dtos.SwitchAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	verifiedIDs, ok := middleware.VerifiedIDsFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing session", nil,
		)
		return
	}

	allowed := false
	for _, id := range verifiedIDs {
		if id == req.CustomerID {
			allowed = true
			break
		}
	}
	if !allowed {
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeForbidden, "Account was not verified in this session", nil,
		)
		return
	}

	// Revoke the old refresh token when the cookie made it here.
	if cookie, err := r.Cookie(middleware.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		if logoutErr := c.sessions.Logout(r.Context(), cookie.Value); logoutErr != nil {
			utils.Logger.WithError(logoutErr).Warn("Failed to revoke refresh token on account switch")
		}
	}

	access, refresh, err := c.sessions.IssueSession(r.Context(), req.CustomerID, verifiedIDs, utils.ClientIP(r))
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to switch account", nil, err,
		)
		return
	}

	middleware.SetAuthCookies(
		w,
		access,
		refresh,
		c.cfg.WebTokenExpiry,
		c.cfg.WebRefreshTokenExpiry,
		RefreshCookiePath,
		c.cfg.LDFlag_CORSHighSecurity,
	)
	utils.RespondWithJSON(w, http.StatusOK, dtos.SessionResponse{
		Authenticated: true,
		CustomerID:    req.CustomerID,
	})
}

// -------------------
// Customer record
// -------------------

// Customer proxies the CRM record for the active account.
func (c *SessionController) Customer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.CustomerIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing session", nil,
		)
		return
	}

	customer, err := c.directory.GetCustomer(r.Context(), customerID)
	if err != nil {
		var notFound *crm.NotFoundError
		if errors.As(err, &notFound) {
			utils.RespondErrorWithCode(
				w, http.StatusNotFound, utils.ErrCodeNotFound, "Customer record not found", nil,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusFailedDependency, utils.ErrCodeExternalServiceFailure, "Failed to load customer record", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, customer)
}
