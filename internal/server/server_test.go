package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	clientapi "github.com/iudanet/yardsync/internal/client/api"
	"github.com/iudanet/yardsync/internal/models"
	"github.com/iudanet/yardsync/internal/server/config"
	"github.com/iudanet/yardsync/internal/server/storage/sqlite"
	"github.com/iudanet/yardsync/pkg/api"
)

type tokenHolder struct {
	token string
}

func (h *tokenHolder) Token(context.Context) (string, error) { return h.token, nil }

type collector struct {
	srv    *Server
	store  *sqlite.Storage
	http   *httptest.Server
	client *clientapi.Client
	tokens *tokenHolder
}

func newCollector(t *testing.T) *collector {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "collector.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "integration-secret-with-32-bytes!"
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(cfg, store, logger, "1.0.0-test", nil)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	tokens := &tokenHolder{}
	return &collector{
		srv:    srv,
		store:  store,
		http:   ts,
		client: clientapi.NewClient(ts.URL, clientapi.WithTokenSource(tokens), clientapi.WithTimeout(5*time.Second)),
		tokens: tokens,
	}
}

func (c *collector) addOperator(t *testing.T, username, password string, role models.Role) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, c.store.CreateUser(context.Background(), &models.User{
		ID:           "id-" + username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}))
}

func (c *collector) login(t *testing.T, username, password string) *api.TokenResponse {
	t.Helper()
	resp, err := c.client.Login(context.Background(), api.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	c.tokens.token = resp.Token
	return resp
}

func entryPayload(id string) models.Payload {
	return models.Payload{
		ID:   id,
		Kind: models.KindEntry,
		Fields: map[string]any{
			"remissionNumber":  "R-1001",
			"provider":         "Maderas del Norte",
			"originYard":       "Patio 3",
			"rawMaterial":      "pine",
			"vehiclePlate":     "ABC123",
			"transportCompany": "TransCarga",
			"netWeight":        12.4,
		},
	}
}

func TestServer_Health(t *testing.T) {
	c := newCollector(t)
	require.NoError(t, c.client.Health(context.Background()))
}

func TestServer_LoginAndDeliver(t *testing.T) {
	c := newCollector(t)
	ctx := context.Background()
	c.addOperator(t, "alice", "s3cret-pass", models.RoleYardOperator)

	resp := c.login(t, "alice", "s3cret-pass")
	assert.Equal(t, string(models.RoleYardOperator), resp.Role)
	assert.Equal(t, int64((12 * time.Hour).Seconds()), resp.ExpiresIn)

	require.NoError(t, c.client.Deliver(ctx, entryPayload("form_1_abcdef01")))
	// повторная доставка того же id не создает дубликат
	require.NoError(t, c.client.Deliver(ctx, entryPayload("form_1_abcdef01")))

	stored, err := c.store.GetSubmission(ctx, "form_1_abcdef01")
	require.NoError(t, err)
	assert.Equal(t, "id-alice", stored.UserID)
	assert.Equal(t, "ABC123", stored.Fields["vehiclePlate"])

	counts, err := c.store.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.KindEntry])

	metrics := handlersCounter(c, "entry")
	assert.InDelta(t, 1.0, metrics.accepted, 0.0001)
	assert.InDelta(t, 1.0, metrics.duplicate, 0.0001)
}

type submissionCounts struct {
	accepted  float64
	duplicate float64
}

func handlersCounter(c *collector, kind string) submissionCounts {
	families, err := c.srv.Registry().Gather()
	if err != nil {
		return submissionCounts{}
	}
	var out submissionCounts
	for _, mf := range families {
		if mf.GetName() != "yardsync_collector_submissions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["kind"] != kind {
				continue
			}
			switch labels["outcome"] {
			case "accepted":
				out.accepted = m.GetCounter().GetValue()
			case "duplicate":
				out.duplicate = m.GetCounter().GetValue()
			}
		}
	}
	return out
}

func TestServer_DeliverErrors(t *testing.T) {
	c := newCollector(t)
	ctx := context.Background()
	c.addOperator(t, "bob", "driver-pass", models.RoleDriver)

	t.Run("without token", func(t *testing.T) {
		err := c.client.Deliver(ctx, entryPayload("form_2"))
		var apiErr *clientapi.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.True(t, clientapi.IsUnauthorized(err))
	})

	c.login(t, "bob", "driver-pass")

	t.Run("role not allowed", func(t *testing.T) {
		err := c.client.Deliver(ctx, entryPayload("form_3"))
		var apiErr *clientapi.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
	})

	t.Run("schema violation", func(t *testing.T) {
		err := c.client.Deliver(ctx, models.Payload{
			ID:     "form_4",
			Kind:   models.KindDispatch,
			Fields: map[string]any{},
		})
		var apiErr *clientapi.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
		assert.NotEmpty(t, apiErr.Details)
	})

	_, err := c.store.GetSubmission(ctx, "form_3")
	assert.Error(t, err)
}

func TestServer_LoginRejected(t *testing.T) {
	c := newCollector(t)
	c.addOperator(t, "alice", "s3cret-pass", models.RoleYardOperator)

	_, err := c.client.Login(context.Background(), api.LoginRequest{Username: "alice", Password: "wrong-pass"})
	var apiErr *clientapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestServer_LoginRateLimited(t *testing.T) {
	c := newCollector(t)
	burst := c.srv.cfg.LoginRateLimit.Burst

	var last int
	for range burst + 1 {
		resp, err := http.Post(c.http.URL+"/api/v1/auth/login", "application/json",
			stringsBody(`{"username":"ghost","password":"whatever1"}`))
		require.NoError(t, err)
		last = resp.StatusCode
		_ = resp.Body.Close()
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestServer_UnknownRoute(t *testing.T) {
	c := newCollector(t)

	resp, err := http.Get(c.http.URL + "/api/v1/forms/entry")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	c := newCollector(t)
	require.NoError(t, c.client.Health(context.Background()))

	resp, err := http.Get(c.http.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `yardsync_http_requests_total{code="200",route="GET /api/v1/health"} 1`)
	assert.Equal(t, 1, mustGatherCount(t, c.srv, "yardsync_http_request_duration_seconds"))
}

func TestServer_RunShutsDown(t *testing.T) {
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.JWTSecret = "integration-secret-with-32-bytes!"
	srv, err := New(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)), "test", nil)
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func stringsBody(s string) io.Reader {
	return strings.NewReader(s)
}

func mustGatherCount(t *testing.T, srv *Server, name string) int {
	t.Helper()
	n, err := testutil.GatherAndCount(srv.Registry(), name)
	require.NoError(t, err)
	return n
}
