// Package auth is the client's stub session: it keeps the collector token in
// the local KV and hands it to the transport.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/yardsync/internal/client/storage"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/models"
)

// KeyToken is the storage key of the session
const KeyToken = "yardsync/auth_token"

// ErrNotLoggedIn indicates that no session is stored
var ErrNotLoggedIn = errors.New("not logged in")

// Session is the stored login result
type Session struct {
	ExpiresAt time.Time   `json:"expires_at"`
	Username  string      `json:"username"`
	Token     string      `json:"token"`
	Role      models.Role `json:"role"`
}

// Expired reports whether the token is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TokenStore keeps the session in a storage.KV
type TokenStore struct {
	kv    storage.KV
	clock clock.Clock
}

// NewTokenStore creates a token store over kv
func NewTokenStore(kv storage.KV, clk clock.Clock) *TokenStore {
	if clk == nil {
		clk = clock.New()
	}
	return &TokenStore{kv: kv, clock: clk}
}

// Save stores the session
func (s *TokenStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.kv.Set(ctx, KeyToken, data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored session or ErrNotLoggedIn
func (s *TokenStore) Load(ctx context.Context) (*Session, error) {
	raw, err := s.kv.Get(ctx, KeyToken)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		// Поврежденная сессия равносильна ее отсутствию
		_ = s.kv.Remove(ctx, KeyToken)
		return nil, ErrNotLoggedIn
	}
	return &session, nil
}

// Clear removes the session (logout)
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, KeyToken); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Token returns the bearer token, "" when absent or expired
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	session, err := s.Load(ctx)
	if errors.Is(err, ErrNotLoggedIn) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if session.Expired(s.clock.Now()) {
		return "", nil
	}
	return session.Token, nil
}
