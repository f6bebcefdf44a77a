package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsbuddy/internal/auth"
	"medsbuddy/internal/domain"
	"medsbuddy/internal/repository"
	"medsbuddy/internal/repository/memory"
)

func validSignup() SignupInput {
	return SignupInput{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret1",
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      domain.RolePatient,
	}
}

func newUserService(t *testing.T) (UserService, repository.UserRepository) {
	t.Helper()
	users := memory.New().Users()
	return NewUserService(users, auth.NewHasher(4)), users
}

func TestSignup(t *testing.T) {
	svc, users := newUserService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.Positive(t, user.ID)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, domain.RolePatient, user.Role)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestSignupDuplicates(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	in := validSignup()
	in.Username = "someone-else"
	_, err = svc.Signup(ctx, in)
	assert.ErrorIs(t, err, ErrEmailTaken)

	in = validSignup()
	in.Email = "other@example.com"
	_, err = svc.Signup(ctx, in)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

type racingUsers struct {
	repository.UserRepository
	field string
}

func (r racingUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r racingUsers) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r racingUsers) Create(context.Context, *domain.User) (int64, error) {
	return 0, &repository.ConflictError{Field: r.field, Err: errors.New("UNIQUE constraint failed")}
}

func TestSignupConstraintViolationWins(t *testing.T) {
	ctx := context.Background()

	svc := NewUserService(racingUsers{field: "email"}, auth.NewHasher(4))
	_, err := svc.Signup(ctx, validSignup())
	assert.ErrorIs(t, err, ErrEmailTaken)

	svc = NewUserService(racingUsers{field: "username"}, auth.NewHasher(4))
	_, err = svc.Signup(ctx, validSignup())
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newUserService(t)

	in := validSignup()
	in.Password = "short"
	in.Role = "doctor"
	in.FirstName = "  "

	_, err := svc.Signup(context.Background(), in)
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		fields[i] = f.Field
	}
	assert.Equal(t, []string{"password", "firstName", "role"}, fields)
}

func TestSignupPasswordTooLong(t *testing.T) {
	svc, _ := newUserService(t)

	in := validSignup()
	in.Password = strings.Repeat("x", 73)
	_, err := svc.Signup(context.Background(), in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "password", verr.Fields[0].Field)

	in.Password = strings.Repeat("x", 72)
	_, err = svc.Signup(context.Background(), in)
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	created, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, wrongPassword := svc.Authenticate(ctx, "alice@example.com", "wrong-password")
	_, unknownEmail := svc.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestGetByID(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	created, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	user, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
