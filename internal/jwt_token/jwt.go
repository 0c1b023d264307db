package jwttoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "wealth/pkg/domain-errors"
)

// Role names carried in operator tokens.
const (
	RoleCompliance = "compliance"
	RoleClient     = "client"
)

// Issuer and audience shared by the API server and cmd/tokengen.
const (
	DefaultIssuer   = "wealth"
	DefaultAudience = "wealth-api"
)

// OperatorClaims are the claims of a token issued to a back-office operator.
type OperatorClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 operator tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewJWTService(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

// Generate signs a token for subject carrying roles.
func (s *JWTService) Generate(subject string, roles []string) (string, error) {
	if subject == "" {
		return "", dErrors.New(dErrors.CodeValidation, "subject cannot be empty")
	}
	if len(roles) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "roles cannot be empty")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, OperatorClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        hex.EncodeToString(b),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses tokenString and checks signature, expiry, issuer and audience.
func (s *JWTService) Validate(tokenString string) (*OperatorClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*OperatorClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
