package jwttoken

import (
	"wealth/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService as an auth.JWTValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*auth.JWTClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{Subject: claims.Subject, Roles: claims.Roles}, nil
}
