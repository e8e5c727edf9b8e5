package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"agendalo/internal/clock"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues staff tokens. Client tokens come from the external
// identity provider; this only covers the staff login the engine ships.
type AuthService struct {
	staff  StaffStore
	secret string
	clock  clock.Clock
	ttl    time.Duration
}

func NewAuthService(staff StaffStore, secret string, clk clock.Clock) *AuthService {
	return &AuthService{staff: staff, secret: secret, clock: clk, ttl: 8 * time.Hour}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if staff == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":       staff.ID.String(),
		"tenant_id": staff.TenantID.String(),
		"role":      staff.Role,
		"full_name": staff.FullName,
		"email":     staff.Email,
		"phone":     staff.Phone,
		"iat":       now.Unix(),
		"exp":       now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}
