package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/authgate/authgate/internal/user"
)

var (
	// ErrDuplicateAccount is deliberately generic: it confirms nothing beyond
	// "exists", so the message doubles as the user-facing text.
	ErrDuplicateAccount = errors.New("An account with this email already exists")

	// ErrInvalidCredentials covers both unknown email and wrong password.
	// Message-text parity between the two causes is intentional; do not make
	// it more specific.
	ErrInvalidCredentials = errors.New("Invalid email or password")
)

// ValidationError reports the first form field that failed validation. The
// message is safe to surface verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

const (
	maxNameLength     = 50
	maxEmailLength    = 254
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input cap
)

// Service orchestrates sign-up, sign-in and session lookup.
type Service struct {
	userRepo        UserRepository
	tokens          TokenService
	sessionDuration time.Duration
}

func NewService(userRepo UserRepository, tokens TokenService, sessionDuration time.Duration) *Service {
	return &Service{
		userRepo:        userRepo,
		tokens:          tokens,
		sessionDuration: sessionDuration,
	}
}

// SignUp creates a new account and issues a session token for it.
func (s *Service) SignUp(ctx context.Context, firstName, lastName, email, password string) (*user.User, string, error) {
	if err := validateName("firstName", "First name", firstName); err != nil {
		return nil, "", err
	}
	if err := validateName("lastName", "Last name", lastName); err != nil {
		return nil, "", err
	}
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if err := validatePassword(password); err != nil {
		return nil, "", err
	}

	// Fast-path existence check. The unique index on email is the
	// authoritative race guard; a concurrent sign-up slipping past this check
	// still fails on Insert with ErrDuplicateEmail.
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, "", ErrDuplicateAccount
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check for existing account: %w", err)
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.userRepo.Insert(ctx, firstName, lastName, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, "", ErrDuplicateAccount
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.CreateToken(claimsFor(newUser), s.sessionDuration)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session token: %w", err)
	}

	return newUser, token, nil
}

// SignIn verifies credentials and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*user.User, string, error) {
	if email == "" {
		return nil, "", &ValidationError{Field: "email", Message: "Email is required"}
	}
	if password == "" {
		return nil, "", &ValidationError{Field: "password", Message: "Password is required"}
	}

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.CreateToken(claimsFor(existingUser), s.sessionDuration)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session token: %w", err)
	}

	return existingUser, token, nil
}

// CurrentSession resolves a session token to its claims. An empty, expired or
// otherwise invalid token yields nil, never an error.
func (s *Service) CurrentSession(token string) *SessionClaims {
	if token == "" {
		return nil
	}

	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil
	}

	return claims
}

func claimsFor(u *user.User) SessionClaims {
	return SessionClaims{
		UserID:    u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

func validateName(field, label, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: label + " is required"}
	}
	if len(value) > maxNameLength {
		return &ValidationError{Field: field, Message: label + " must be less than 50 characters"}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if len(email) > maxEmailLength {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	if len(password) > maxPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be less than 72 characters"}
	}
	return nil
}
