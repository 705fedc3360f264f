package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/yardsync/internal/models"
	"github.com/iudanet/yardsync/pkg/api"
)

//go:generate moq -out login_mock.go . LoginClient

// LoginClient is the part of the API client used for authentication
type LoginClient interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
}

// Service logs operators in and out
type Service struct {
	client LoginClient
	store  *TokenStore
	logger *slog.Logger
}

// NewService creates the auth service
func NewService(client LoginClient, store *TokenStore, logger *slog.Logger) *Service {
	return &Service{client: client, store: store, logger: logger}
}

// Login authenticates against the collector and stores the session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := s.client.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	session := &Session{
		Username:  username,
		Token:     resp.Token,
		Role:      models.Role(resp.Role),
		ExpiresAt: s.store.clock.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("logged in", "username", username, "role", session.Role)
	return session, nil
}

// Logout forgets the stored session
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// Current returns the stored session
func (s *Service) Current(ctx context.Context) (*Session, error) {
	return s.store.Load(ctx)
}
