package auth

import (
	"context"
	"time"

	"github.com/authgate/authgate/internal/user"
)

// UserRepository defines the persistence collaborator for user records.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Insert(ctx context.Context, firstName, lastName, email, passwordHash string) (*user.User, error)
}

// TokenService defines the interface for session token creation and validation.
type TokenService interface {
	CreateToken(claims SessionClaims, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*SessionClaims, error)
}

// RateLimiter defines the per-IP request limiter used by the auth endpoints.
type RateLimiter interface {
	Check(ctx context.Context, ip, purpose string) (bool, error)
	Record(ctx context.Context, ip, purpose string) error
}
