package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

type contextKey string

const (
	ContextKeyCustomerID  = contextKey("customerID")
	ContextKeyVerifiedIDs = contextKey("verifiedCustomerIDs")

	// Cookie names follow the __Host- prefix rule (no Domain attribute allowed)
	AccessTokenCookieName  = "__Host-accessToken"
	RefreshTokenCookieName = "auth_refreshToken"
)

// AuthMiddleware protects the customer-portal endpoints. The JWT is read
// from the access-token cookie; missing or invalid tokens return 401.
func AuthMiddleware(pub *rsa.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := utils.ClientIP(r)

			c, err := r.Cookie(AccessTokenCookieName)
			if err != nil || c.Value == "" {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing access token cookie", nil,
				)
				return
			}

			tok, vErr := ValidateToken(c.Value, clientIP, pub)
			if vErr != nil || !tok.Valid {
				if errors.Is(vErr, jwt.ErrTokenExpired) {
					utils.RespondErrorWithCode(
						w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token expired", nil, vErr,
					)
					return
				}
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token", nil, vErr,
				)
				return
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid claims", nil,
				)
				return
			}
			sub, ok := claims["sub"].(string)
			if !ok {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing subject", nil,
				)
				return
			}
			customerID, err := strconv.ParseInt(sub, 10, 64)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Malformed subject", nil, err,
				)
				return
			}
			verifiedIDs, err := VerifiedCustomerIDs(claims)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid claims", nil, err,
				)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCustomerID, customerID)
			ctx = context.WithValue(ctx, ContextKeyVerifiedIDs, verifiedIDs)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerIDFromContext returns the active customer set by AuthMiddleware.
func CustomerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyCustomerID).(int64)
	return id, ok
}

// VerifiedIDsFromContext returns the verified customer set from the token.
func VerifiedIDsFromContext(ctx context.Context) ([]int64, bool) {
	ids, ok := ctx.Value(ContextKeyVerifiedIDs).([]int64)
	return ids, ok
}
