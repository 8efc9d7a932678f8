package service

import (
	"errors"
	"fmt"
	"time"

	"game-reward-service/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

const adminRole = "admin"

// JWTAdminTokenService implements ports.AdminTokenService using HS256 JWT.
type JWTAdminTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTAdminTokenService creates a new admin token service.
func NewJWTAdminTokenService(secret string, expiry time.Duration, issuer string) *JWTAdminTokenService {
	return &JWTAdminTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed admin JWT for the given operator.
func (s *JWTAdminTokenService) Generate(subject string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("admin jwt secret is not configured")
	}
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}

	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates an admin JWT, returning the claims.
func (s *JWTAdminTokenService) Validate(tokenString string) (*ports.AdminClaims, error) {
	if len(s.secret) == 0 {
		return nil, errors.New("admin jwt secret is not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if role, _ := claims["role"].(string); role != adminRole {
		return nil, fmt.Errorf("token is not an admin token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing subject claim")
	}

	return &ports.AdminClaims{Subject: sub}, nil
}
