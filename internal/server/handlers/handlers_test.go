package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/models"
)

var now = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

var testJWT = JWTConfig{
	Secret:         []byte("test-secret-key-with-enough-bytes"),
	AccessTokenTTL: 12 * time.Hour,
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func operator(role models.Role) *models.User {
	return &models.User{
		ID:       "user-" + string(role),
		Username: "op_" + string(role),
		Role:     role,
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// asOperator puts the operator into the request context the way AuthMiddleware does
func asOperator(r *http.Request, user *models.User) *http.Request {
	claims := &CustomClaims{UserID: user.ID, Username: user.Username, Role: user.Role}
	return r.WithContext(WithClaims(r.Context(), claims))
}

func stringsReader(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}
