package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/user"
)

// fakeUserRepo is an in-memory UserRepository keyed by email, mirroring the
// unique-index behavior of the real store.
type fakeUserRepo struct {
	users     map[string]*user.User
	findErr   error
	insertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) Insert(_ context.Context, firstName, lastName, email, passwordHash string) (*user.User, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if _, ok := f.users[email]; ok {
		return nil, user.ErrDuplicateEmail
	}
	now := time.Now()
	u := &user.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[email] = u
	return u, nil
}

func newTestService(t *testing.T, repo UserRepository) *Service {
	t.Helper()
	return NewService(repo, newTestTokenService(t), 7*24*time.Hour)
}

func TestSignUp_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(t, repo)

	newUser, token, err := svc.SignUp(context.Background(), "A", "B", "a@b.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, newUser)
	require.NotEmpty(t, token)

	assert.Equal(t, "a@b.com", newUser.Email)
	assert.NotEqual(t, "secret123", newUser.PasswordHash, "password must be stored hashed")
	assert.Len(t, repo.users, 1)

	claims := svc.CurrentSession(token)
	require.NotNil(t, claims)
	assert.Equal(t, newUser.ID.String(), claims.UserID)
	assert.Equal(t, "A", claims.FirstName)
	assert.Equal(t, "B", claims.LastName)
	assert.Equal(t, "a@b.com", claims.Email)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(t, repo)

	_, _, err := svc.SignUp(context.Background(), "A", "B", "a@b.com", "secret123")
	require.NoError(t, err)

	_, _, err = svc.SignUp(context.Background(), "C", "D", "a@b.com", "secret456")
	assert.ErrorIs(t, err, ErrDuplicateAccount)
	assert.Equal(t, "An account with this email already exists", err.Error())
	assert.Len(t, repo.users, 1)
}

func TestSignUp_DuplicateFromInsertRace(t *testing.T) {
	t.Parallel()

	// The pre-check passes but the insert hits the unique index, as in a
	// concurrent sign-up race. The caller sees the same duplicate error.
	repo := newFakeUserRepo()
	repo.insertErr = user.ErrDuplicateEmail
	svc := newTestService(t, repo)

	_, _, err := svc.SignUp(context.Background(), "A", "B", "a@b.com", "secret123")
	assert.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestSignUp_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeUserRepo())

	longName := make([]byte, 51)
	for i := range longName {
		longName[i] = 'x'
	}

	tests := []struct {
		name      string
		firstName string
		lastName  string
		email     string
		password  string
		wantField string
	}{
		{"missing first name", "", "B", "a@b.com", "secret123", "firstName"},
		{"first name too long", string(longName), "B", "a@b.com", "secret123", "firstName"},
		{"missing last name", "A", "", "a@b.com", "secret123", "lastName"},
		{"missing email", "A", "B", "", "secret123", "email"},
		{"invalid email", "A", "B", "not-an-email", "secret123", "email"},
		{"missing password", "A", "B", "a@b.com", "", "password"},
		{"short password", "A", "B", "a@b.com", "short", "password"},
		// First invalid field wins even when several are bad
		{"first field reported", "", "", "", "", "firstName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.SignUp(context.Background(), tt.firstName, tt.lastName, tt.email, tt.password)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.NotEmpty(t, ve.Message)
		})
	}
}

func TestSignIn_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(t, repo)

	_, _, err := svc.SignUp(context.Background(), "A", "B", "a@b.com", "secret123")
	require.NoError(t, err)

	signedIn, token, err := svc.SignIn(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", signedIn.Email)
	require.NotEmpty(t, token)

	claims := svc.CurrentSession(token)
	require.NotNil(t, claims)
	assert.Equal(t, signedIn.ID.String(), claims.UserID)
}

func TestSignIn_EnumerationResistance(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(t, repo)

	_, _, err := svc.SignUp(context.Background(), "A", "B", "a@b.com", "secret123")
	require.NoError(t, err)

	// Wrong password and unknown email must be indistinguishable
	_, _, wrongPassword := svc.SignIn(context.Background(), "a@b.com", "wrong-password")
	_, _, unknownEmail := svc.SignIn(context.Background(), "nobody@b.com", "secret123")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestSignIn_RepositoryFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	repo.findErr = errors.New("connection refused")
	svc := newTestService(t, repo)

	_, _, err := svc.SignIn(context.Background(), "a@b.com", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestCurrentSession_NoSession(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeUserRepo())

	assert.Nil(t, svc.CurrentSession(""))
	assert.Nil(t, svc.CurrentSession("not-a-token"))
}

func TestCurrentSession_Expired(t *testing.T) {
	t.Parallel()

	tokens := newTestTokenService(t)
	svc := NewService(newFakeUserRepo(), tokens, 7*24*time.Hour)

	token, err := tokens.CreateToken(testClaims(), -time.Minute)
	require.NoError(t, err)

	assert.Nil(t, svc.CurrentSession(token))
}
