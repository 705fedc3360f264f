package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/server/storage"
	"github.com/iudanet/yardsync/internal/validation"
	"github.com/iudanet/yardsync/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	clock       clock.Clock
	metrics     *Metrics
	jwtConfig   JWTConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, jwtConfig JWTConfig,
	clk clock.Clock, metrics *Metrics) *AuthHandler {
	if clk == nil {
		clk = clock.New()
	}
	return &AuthHandler{
		logger:      logger,
		userStorage: userStorage,
		jwtConfig:   jwtConfig,
		clock:       clk,
		metrics:     metrics,
	}
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация оператора по паролю, в ответ выдается access token с ролью
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		WriteError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
		WriteError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		WriteError(w, h.logger, "password is required", http.StatusBadRequest)
		return
	}

	user, err := h.userStorage.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("username", req.Username))
			h.reject(w)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.count(OutcomeError)
		WriteError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.WarnContext(ctx, "login failed: wrong password", slog.String("username", req.Username))
		h.reject(w)
		return
	}

	token, expiresIn, err := GenerateAccessToken(h.jwtConfig, user, h.clock.Now())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.count(OutcomeError)
		WriteError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "operator logged in",
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)))
	h.count(OutcomeSuccess)

	WriteJSON(w, h.logger, api.TokenResponse{
		Token:     token,
		Role:      string(user.Role),
		ExpiresIn: expiresIn,
	}, http.StatusOK)
}

// reject отвечает одинаково для неизвестного пользователя и неверного пароля
func (h *AuthHandler) reject(w http.ResponseWriter) {
	h.count(OutcomeRejected)
	WriteError(w, h.logger, "invalid credentials", http.StatusUnauthorized)
}

func (h *AuthHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}
