// Package auth is the Token Validator external interface adapter
// (§4.I): validate(token) -> {user_id, tier} | none. Adapted from the
// teacher's internal/auth/jwt.go, generalized to carry a subscription
// Tier claim instead of a Role claim.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
)

// Identity is what a successful Validate call yields: the user_id and
// subscription tier carried by the token.
type Identity struct {
	UserID string
	Tier   alert.Tier
}

// Claims is the JWT claim set minted and verified for push connections.
type Claims struct {
	UserID string     `json:"userId"`
	Tier   alert.Tier `json:"tier"`
	jwt.RegisteredClaims
}

// Validator validates opaque bearer tokens into an Identity, side
// effect free from the core's point of view (§4.I).
type Validator interface {
	Validate(token string) (*Identity, error)
	FromRequest(r *http.Request) (*Identity, error)
}

// JWTValidator is the concrete Validator backed by HS256 JWTs.
type JWTValidator struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewJWTValidator constructs a JWTValidator with the given signing
// secret and the lifetime that Generate gives the tokens it mints.
func NewJWTValidator(secretKey string, tokenDuration time.Duration) *JWTValidator {
	return &JWTValidator{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate mints a signed token for userID/tier.
func (v *JWTValidator) Generate(userID string, tier alert.Tier) (string, error) {
	claims := &Claims{
		UserID: userID,
		Tier:   tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(v.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "surya-solar-alertcore",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}

// Validate verifies tokenString and returns the carried Identity.
func (v *JWTValidator) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	tier := claims.Tier
	if tier == "" {
		tier = alert.TierFree
	}
	return &Identity{UserID: claims.UserID, Tier: tier}, nil
}

// ExtractTokenFromHeader extracts JWT token from Authorization header
func ExtractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", errors.New("invalid authorization header format")
	}

	return strings.TrimPrefix(authHeader, bearerPrefix), nil
}

// ExtractTokenFromQuery extracts JWT token from query parameter
func ExtractTokenFromQuery(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", errors.New("token query parameter missing")
	}
	return token, nil
}

// FromRequest resolves a token carried either in the query string (the
// common case for a WebSocket upgrade, which cannot set a custom
// header) or in the Authorization header, and validates it.
func (v *JWTValidator) FromRequest(r *http.Request) (*Identity, error) {
	token, err := ExtractTokenFromQuery(r)
	if err != nil {
		token, err = ExtractTokenFromHeader(r)
		if err != nil {
			return nil, fmt.Errorf("no valid token found: %w", err)
		}
	}
	return v.Validate(token)
}