package redis

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/client/storage"
)

// Тесты требуют запущенный Redis: YARDSYNC_TEST_REDIS_ADDR=localhost:6379
func setupTestStorage(t *testing.T, capacity int64) *Storage {
	t.Helper()

	addr := os.Getenv("YARDSYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("YARDSYNC_TEST_REDIS_ADDR is not set")
	}

	// Уникальный префикс изолирует тесты друг от друга
	s, err := New(context.Background(), Options{
		Addr:     addr,
		Prefix:   "yardsync-test:" + uuid.NewString() + ":",
		Capacity: capacity,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(context.Background(), Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestStorage_SetGetRemove(t *testing.T) {
	s := setupTestStorage(t, 0)
	ctx := context.Background()

	_, err := s.Get(ctx, "draft")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "draft", []byte(`{"kind":"entry"}`)))
	got, err := s.Get(ctx, "draft")
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"entry"}`, string(got))

	require.NoError(t, s.Remove(ctx, "draft"))
	require.NoError(t, s.Remove(ctx, "draft"))
	_, err = s.Get(ctx, "draft")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStorage_Quota(t *testing.T) {
	s := setupTestStorage(t, 100)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte(strings.Repeat("x", 60))))
	assert.ErrorIs(t, s.Set(ctx, "b", []byte(strings.Repeat("y", 60))), storage.ErrQuotaExceeded)

	require.NoError(t, s.Remove(ctx, "a"))
	assert.NoError(t, s.Set(ctx, "b", []byte(strings.Repeat("y", 60))))
}
