package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// fakeUserRepo implements repository.UserRepository with overridable funcs.
type fakeUserRepo struct {
	createFn        func(ctx context.Context, user *domain.User) error
	getByIDFn       func(ctx context.Context, id string) (*domain.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, user)
	}
	user.ID = "generated-id"
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if f.getByUsernameFn != nil {
		return f.getByUsernameFn(ctx, username)
	}
	return nil, pgx.ErrNoRows
}

func testAuthConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            bcrypt.MinCost,
		},
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	var created *domain.User
	repo := &fakeUserRepo{
		createFn: func(_ context.Context, user *domain.User) error {
			user.ID = "u1"
			created = user
			return nil
		},
	}
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: repo})

	user, err := svc.Register(context.Background(), "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	require.NotNil(t, created)
	assert.NotEqual(t, "pw1", created.PasswordHash)
	assert.NoError(t, auth.ComparePassword(created.PasswordHash, "pw1"))
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	repo := &fakeUserRepo{
		getByUsernameFn: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "u1", Username: "alice"}, nil
		},
	}
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: repo})

	_, err := svc.Register(context.Background(), "alice", "pw1")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestRegisterRequiresCredentials(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: &fakeUserRepo{}})

	for _, tc := range []struct{ username, password string }{
		{"", "pw1"},
		{"alice", ""},
		{"   ", "pw1"},
	} {
		_, err := svc.Register(context.Background(), tc.username, tc.password)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	hash, err := auth.HashPassword("pw1", bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeUserRepo{
		getByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			if username == "alice" {
				return &domain.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil
			}
			return nil, pgx.ErrNoRows
		},
	}
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: repo})

	token, _, err := svc.Login(context.Background(), "alice", "pw1")
	require.NoError(t, err)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	hash, err := auth.HashPassword("pw1", bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeUserRepo{
		getByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			if username == "alice" {
				return &domain.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil
			}
			return nil, pgx.ErrNoRows
		},
	}
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: repo})

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "pw2"},
		{"unknown username", "mallory", "pw1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tt.username, tt.password)
			require.Error(t, err)
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
			assert.Equal(t, "incorrect username or password", domainErr.Message)
		})
	}
}
