package middleware

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer identifies the service that issues all access/refresh tokens.
const TokenIssuer = "EconomyPlumbing"

// ValidateToken checks the token's signature, standard claims, and IP
// binding. The portal is web-only, so every token carries an "ip" claim.
//
// Any deviation returns a descriptive error.
func ValidateToken(
	tokenString string,
	clientIP string,
	publicKey *rsa.PublicKey,
) (*jwt.Token, error) {

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("missing expiration claim")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, jwt.ErrTokenExpired
	}

	iss, ok := claims["iss"].(string)
	if !ok {
		return nil, errors.New("missing issuer claim")
	}
	if iss != TokenIssuer {
		return nil, errors.New("invalid token issuer")
	}

	ipClaim, hasIP := claims["ip"].(string)
	if !hasIP {
		return nil, errors.New("missing IP claim in token")
	}
	if ipClaim != clientIP {
		return nil, errors.New("IP address mismatch")
	}

	return token, nil
}

// VerifiedCustomerIDs extracts the "cids" claim, the set of customer
// accounts the holder verified ownership of during login.
func VerifiedCustomerIDs(claims jwt.MapClaims) ([]int64, error) {
	raw, ok := claims["cids"].([]any)
	if !ok {
		return nil, errors.New("missing cids claim")
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, errors.New("malformed cids claim")
		}
		ids = append(ids, int64(f))
	}
	if len(ids) == 0 {
		return nil, errors.New("empty cids claim")
	}
	return ids, nil
}
