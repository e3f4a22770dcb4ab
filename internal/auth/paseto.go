package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

// ErrInvalidToken is the single failure mode of token verification. Expired,
// tampered, malformed and wrong-key tokens are deliberately indistinguishable
// to callers.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims is the subset of the user record that is safe to embed in a
// client-held token.
type SessionClaims struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// PasetoService issues and verifies session tokens.
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305).
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
	}, nil
}

// CreateToken generates a new PASETO v4.local token carrying the session
// claims, valid for the given duration.
func (s *PasetoService) CreateToken(claims SessionClaims, duration time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(duration))
	token.SetString("user_id", claims.UserID)
	token.SetString("first_name", claims.FirstName)
	token.SetString("last_name", claims.LastName)
	token.SetString("email", claims.Email)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken validates a session token and returns its claims. Any failure,
// whatever the cause, is ErrInvalidToken.
func (s *PasetoService) VerifyToken(tokenStr string) (*SessionClaims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}

	firstName, err := token.GetString("first_name")
	if err != nil {
		return nil, ErrInvalidToken
	}

	lastName, err := token.GetString("last_name")
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &SessionClaims{
		UserID:    userID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	}, nil
}
