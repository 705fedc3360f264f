package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/client/storage/memory"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/models"
	"github.com/iudanet/yardsync/pkg/api"
)

func TestTokenStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	fc := clock.NewFake(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	store := NewTokenStore(kv, fc)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, store.Save(ctx, &Session{
		Username:  "ana",
		Token:     "jwt-1",
		Role:      models.RoleDriver,
		ExpiresAt: fc.Now().Add(time.Hour),
	}))

	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", token)

	// Истекший токен не отдается
	fc.Advance(time.Hour)
	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	assert.Error(t, store.Save(ctx, nil))
}

func TestTokenStore_CorruptedSession(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	require.NoError(t, kv.Set(ctx, KeyToken, []byte("{oops")))

	_, err := NewTokenStore(kv, nil).Load(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = kv.Get(ctx, KeyToken)
	assert.Error(t, err)
}

func TestService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	store := NewTokenStore(memory.New(0), fc)
	client := &LoginClientMock{
		LoginFunc: func(_ context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
			if req.Password != "secret" {
				return nil, errors.New("invalid credentials")
			}
			return &api.TokenResponse{Token: "jwt-2", Role: "yard_operator", ExpiresIn: 900}, nil
		},
	}
	svc := NewService(client, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Login(ctx, "ana", "wrong")
	require.Error(t, err)
	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	session, err := svc.Login(ctx, "ana", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleYardOperator, session.Role)
	assert.Equal(t, fc.Now().Add(15*time.Minute), session.ExpiresAt)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-2", current.Token)
	assert.Len(t, client.LoginCalls(), 2)

	require.NoError(t, svc.Logout(ctx))
	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}
