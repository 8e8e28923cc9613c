package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

var (
	ErrAuthDisabled       = errors.New("admin auth disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const adminSubject = "gbid-admin"

// AdminAuthService guards the catalog API with a single shared admin password
// exchanged for short-lived HS256 tokens.
type AdminAuthService interface {
	Enabled() bool
	Login(ctx context.Context, password string) (string, error)
	VerifyToken(ctx context.Context, tokenString string) error
	GetAccessTTL() time.Duration
}

type AdminClaims struct {
	jwt.RegisteredClaims
}

type adminAuthService struct {
	log          *logger.Logger
	passwordHash []byte
	jwtSecretKey []byte
	accessTTL    time.Duration
	now          func() time.Time
}

// NewAdminAuthService returns a disabled service when either the bcrypt hash
// or the signing secret is empty.
func NewAdminAuthService(log *logger.Logger, passwordHash, jwtSecretKey string, accessTTL time.Duration) AdminAuthService {
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &adminAuthService{
		log:          log.With("service", "AdminAuthService"),
		passwordHash: []byte(strings.TrimSpace(passwordHash)),
		jwtSecretKey: []byte(strings.TrimSpace(jwtSecretKey)),
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

func (as *adminAuthService) Enabled() bool {
	return len(as.passwordHash) > 0 && len(as.jwtSecretKey) > 0
}

func (as *adminAuthService) Login(ctx context.Context, password string) (string, error) {
	if !as.Enabled() {
		return "", ErrAuthDisabled
	}
	if password == "" {
		return "", fmt.Errorf("Password is required to login")
	}
	if err := bcrypt.CompareHashAndPassword(as.passwordHash, []byte(password)); err != nil {
		as.log.Warn("Admin login rejected")
		return "", ErrInvalidCredentials
	}
	now := as.now()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.jwtSecretKey)
}

func (as *adminAuthService) VerifyToken(ctx context.Context, tokenString string) error {
	if !as.Enabled() {
		return nil
	}
	if tokenString == "" {
		return fmt.Errorf("missing or invalid token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(as.now),
	)
	if err != nil {
		return fmt.Errorf("Failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid || claims.Subject != adminSubject {
		return fmt.Errorf("Invalid or expired JWT token")
	}
	return nil
}

func (as *adminAuthService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
