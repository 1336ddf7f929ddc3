package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventlottery/internal/domain"
)

type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) {
	return salt + ":" + password, nil
}

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return fmt.Errorf("mismatch")
	}
	return nil
}

type fakeIssuer struct{ err error }

func (f fakeIssuer) Issue(userID, email, role string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}

func TestUserService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the user and sends a welcome email", func(t *testing.T) {
		emails := &mockEmailService{}
		svc := NewUserService(newMockUserRepo(), fakeHasher{}, fakeIssuer{}, time.Hour, emails)

		user, err := svc.SignUp(ctx, " Alice@Example.com ", "hunter2hunter2", "Alice", "entrant")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", user.Email)
		require.Equal(t, domain.RoleEntrant, user.Role)
		require.NotEmpty(t, user.PasswordHash)
		require.Len(t, emails.welcomes, 1)
	})

	t.Run("unknown role falls back to entrant", func(t *testing.T) {
		svc := NewUserService(newMockUserRepo(), fakeHasher{}, fakeIssuer{}, time.Hour, nil)
		user, err := svc.SignUp(ctx, "bob@example.com", "hunter2hunter2", "Bob", "admin")
		require.NoError(t, err)
		require.Equal(t, domain.RoleEntrant, user.Role)
	})

	t.Run("rejects short passwords and bad emails", func(t *testing.T) {
		svc := NewUserService(newMockUserRepo(), fakeHasher{}, fakeIssuer{}, time.Hour, nil)

		_, err := svc.SignUp(ctx, "bob@example.com", "short", "Bob", "entrant")
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = svc.SignUp(ctx, "not-an-email", "hunter2hunter2", "Bob", "entrant")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("duplicate email surfaces as such", func(t *testing.T) {
		repo := newMockUserRepo()
		svc := NewUserService(repo, fakeHasher{}, fakeIssuer{}, time.Hour, nil)
		_, err := svc.SignUp(ctx, "dup@example.com", "hunter2hunter2", "One", "entrant")
		require.NoError(t, err)
		_, err = svc.SignUp(ctx, "dup@example.com", "hunter2hunter2", "Two", "entrant")
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()

	repo := newMockUserRepo()
	svc := NewUserService(repo, fakeHasher{}, fakeIssuer{}, time.Hour, nil)
	created, err := svc.SignUp(ctx, "carol@example.com", "hunter2hunter2", "Carol", "organizer")
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "carol@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "token-"+created.ID, token)
	require.Equal(t, created.ID, user.ID)

	_, _, err = svc.Login(ctx, "carol@example.com", "wrong-password")
	require.Error(t, err)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter2hunter2")
	require.Error(t, err)
}
