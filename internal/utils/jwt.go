package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/internal/domain"
)

const accessTokenType = "access"

// ErrTokenInvalid is returned when a token is malformed, forged or expired
var ErrTokenInvalid = errors.New("token is invalid or expired")

// SignToken signs the payload with key using HS256. An "exp" claim ttl from
// now and an "iat" claim are added, overriding any present in payload.
func SignToken(payload map[string]any, key []byte, ttl time.Duration) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("failed to sign token: empty signing key")
	}

	now := time.Now()
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken checks signature and expiry and returns the payload
func VerifyToken(tokenString string, key []byte) (map[string]any, error) {
	if len(key) == 0 {
		return nil, ErrTokenInvalid
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// DecodeUnverified extracts the payload without checking the signature.
// Only use it to pick the key the token must then be verified with.
func DecodeUnverified(tokenString string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// JWTManager mints and validates access tokens
type JWTManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessTokenExpiry,
	}
}

// GenerateAccessToken generates a new access token for the user
func (j *JWTManager) GenerateAccessToken(userID string) (string, error) {
	return SignToken(map[string]any{
		"sub": userID,
		"typ": accessTokenType,
		"jti": uuid.NewString(),
	}, j.secret, j.accessTokenExpiry)
}

// ValidateAccessToken validates an access token and returns its claims
func (j *JWTManager) ValidateAccessToken(tokenString string) (*domain.AccessClaims, error) {
	claims, err := VerifyToken(tokenString, j.secret)
	if err != nil {
		return nil, err
	}

	if claims["typ"] != accessTokenType {
		return nil, ErrTokenInvalid
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, ErrTokenInvalid
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	iat, _ := claims["iat"].(float64)

	return &domain.AccessClaims{
		UserID:    userID,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}
