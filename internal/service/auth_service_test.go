package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := NewAuthService(users, "test-secret")

	resp, err := svc.Register(ctx, RegisterInput{
		Email:       "alice@example.com",
		Username:    "alice",
		DisplayName: "Alice",
		Password:    "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "correct horse", resp.User.PasswordHash, "password is never stored raw")

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCreds)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := NewAuthService(users, "test-secret")

	_, err := svc.Register(ctx, RegisterInput{
		Email:       "alice@example.com",
		Username:    "alice",
		DisplayName: "Alice",
		Password:    "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{
		Email:       "alice@example.com",
		Username:    "alice2",
		DisplayName: "Alice Two",
		Password:    "correct horse",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(ctx, RegisterInput{
		Email:       "alice2@example.com",
		Username:    "alice",
		DisplayName: "Alice Two",
		Password:    "correct horse",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestTokenCarriesUserID(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := NewAuthService(users, "test-secret")

	resp, err := svc.Register(ctx, RegisterInput{
		Email:       "bob@example.com",
		Username:    "bob",
		DisplayName: "Bob",
		Password:    "hunter2hunter2",
	})
	require.NoError(t, err)

	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), sub)
}

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := hashPassword("s3cret-passphrase")
	require.NoError(t, err)

	assert.True(t, verifyPassword("s3cret-passphrase", hash))
	assert.False(t, verifyPassword("S3cret-passphrase", hash))
	assert.False(t, verifyPassword("s3cret-passphrase", "garbage"))
}
