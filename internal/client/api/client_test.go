package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/models"
	"github.com/iudanet/yardsync/pkg/api"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)

	client = NewClient("http://localhost:8080", WithTimeout(3*time.Second))
	assert.Equal(t, 3*time.Second, client.httpClient.Timeout)
}

// TestClient_Deliver проверяет успешную доставку формы
func TestClient_Deliver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/forms/entry", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "form_1_abcdef01", r.Header.Get("Idempotency-Key"))

		var req api.SubmitFormRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "form_1_abcdef01", req.ID)
		assert.Equal(t, "ABC123", req.Fields["vehiclePlate"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.SubmitFormResponse{Success: true, ID: req.ID})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenSource(staticToken("tok-1")))

	err := client.Deliver(context.Background(), models.Payload{
		ID:     "form_1_abcdef01",
		Kind:   models.KindEntry,
		Fields: map[string]any{"vehiclePlate": "ABC123"},
	})
	assert.NoError(t, err)
}

func TestClient_DeliverWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewClient(server.URL, WithTokenSource(staticToken(""))).
		Deliver(context.Background(), models.Payload{ID: "form_1", Kind: models.KindExit})
	assert.NoError(t, err)
}

func TestClient_DeliverRequiresID(t *testing.T) {
	err := NewClient("http://127.0.0.1:1").Deliver(context.Background(), models.Payload{Kind: models.KindExit})
	assert.Error(t, err)
}

// TestClient_Deliver_Error проверяет разбор ответов с ошибкой
func TestClient_Deliver_Error(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		wantDetails []string
		status      int
	}{
		{
			name:        "error response with message",
			status:      http.StatusUnprocessableEntity,
			body:        `{"error":"validation failed","message":"invalid entry form","details":["netWeight: must be greater than 0"]}`,
			wantMessage: "invalid entry form",
			wantDetails: []string{"netWeight: must be greater than 0"},
		},
		{
			name:        "error field only",
			status:      http.StatusForbidden,
			body:        `{"error":"role driver cannot submit entry forms"}`,
			wantMessage: "role driver cannot submit entry forms",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable\n",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			status:      http.StatusServiceUnavailable,
			wantMessage: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL).Deliver(context.Background(), models.Payload{ID: "form_1", Kind: models.KindEntry})

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantDetails, apiErr.Details)
		})
	}
}

func TestClient_DeliverNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewClient(url).Deliver(context.Background(), models.Payload{ID: "form_1", Kind: models.KindEntry})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "network error")
}

func TestClient_DeliverTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewClient(server.URL).Deliver(ctx, models.Payload{ID: "form_1", Kind: models.KindEntry})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Health(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK, body: `{"status":"ok","version":"1.0.0"}`},
		{name: "degraded", status: http.StatusOK, body: `{"status":"degraded"}`, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"db down"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/health", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL).Health(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestClient_Login проверяет аутентификацию
func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(api.TokenResponse{Token: "jwt", Role: "driver", ExpiresIn: 3600})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.Login(context.Background(), api.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.Token)
	assert.Equal(t, "driver", resp.Role)

	_, err = client.Login(context.Background(), api.LoginRequest{Username: "ana", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}
