package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/forms"
	"github.com/iudanet/yardsync/internal/models"
	"github.com/iudanet/yardsync/internal/server/storage"
	"github.com/iudanet/yardsync/pkg/api"
)

// FormsHandler принимает формы от операторов
type FormsHandler struct {
	logger    *slog.Logger
	storage   storage.SubmissionStorage
	validator forms.Validator
	clock     clock.Clock
	metrics   *Metrics
}

// NewFormsHandler creates the form submission handler
func NewFormsHandler(logger *slog.Logger, submissions storage.SubmissionStorage, validator forms.Validator,
	clk clock.Clock, metrics *Metrics) *FormsHandler {
	if clk == nil {
		clk = clock.New()
	}
	return &FormsHandler{
		logger:    logger,
		storage:   submissions,
		validator: validator,
		clock:     clk,
		metrics:   metrics,
	}
}

// Submit обрабатывает POST /api/v1/forms/{kind}.
// The submission id comes from the body or the Idempotency-Key header; a replay
// of an accepted id answers 200 with duplicate=true and stores nothing.
func (h *FormsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind := models.FormKind(r.PathValue("kind"))
	if !kind.Valid() {
		WriteError(w, h.logger, "unknown form kind", http.StatusNotFound)
		return
	}

	// Данные оператора кладет AuthMiddleware
	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		WriteError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}
	role, _ := GetRole(ctx)
	if !role.Allows(kind) {
		username, _ := GetUsername(ctx)
		h.logger.WarnContext(ctx, "form kind not allowed for role",
			slog.String("username", username),
			slog.String("role", string(role)),
			slog.String("kind", string(kind)))
		h.count(kind, OutcomeForbidden)
		WriteError(w, h.logger, "your role is not allowed to submit this form", http.StatusForbidden)
		return
	}

	var req api.SubmitFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode form", slog.Any("error", err))
		WriteError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := submissionID(req.ID, r.Header.Get(api.HeaderIdempotencyKey))
	if err != nil {
		WriteError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Fields == nil {
		req.Fields = map[string]any{}
	}
	if err := h.validator.Validate(kind, req.Fields); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			h.logger.InfoContext(ctx, "form rejected by schema",
				slog.String("id", id),
				slog.String("kind", string(kind)),
				slog.Int("problems", len(verr.Problems)))
			h.count(kind, OutcomeInvalid)
			WriteError(w, h.logger, "the form is not valid", http.StatusUnprocessableEntity, verr.Problems...)
			return
		}
		h.logger.ErrorContext(ctx, "failed to validate form", slog.Any("error", err))
		h.count(kind, OutcomeError)
		WriteError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	sub := &models.StoredSubmission{
		ID:         id,
		Kind:       kind,
		UserID:     userID,
		Fields:     req.Fields,
		ReceivedAt: h.clock.Now().UTC(),
	}
	if err := h.storage.SaveSubmission(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrDuplicateSubmission) {
			h.logger.InfoContext(ctx, "duplicate submission ignored", slog.String("id", id))
			h.count(kind, OutcomeDuplicate)
			WriteJSON(w, h.logger, api.SubmitFormResponse{
				Success:   true,
				Duplicate: true,
				ID:        id,
				Message:   "Form already received",
			}, http.StatusOK)
			return
		}
		h.logger.ErrorContext(ctx, "failed to save submission", slog.String("id", id), slog.Any("error", err))
		h.count(kind, OutcomeError)
		WriteError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "form received",
		slog.String("id", id),
		slog.String("kind", string(kind)),
		slog.String("user_id", userID))
	h.count(kind, OutcomeAccepted)

	WriteJSON(w, h.logger, api.SubmitFormResponse{
		Success: true,
		ID:      id,
		Message: "Form received",
	}, http.StatusCreated)
}

// submissionID reconciles the body id with the Idempotency-Key header.
// Без обоих идентификаторов сервер выдает свой
func submissionID(bodyID, headerID string) (string, error) {
	switch {
	case bodyID != "" && headerID != "" && bodyID != headerID:
		return "", errors.New("id does not match the Idempotency-Key header")
	case bodyID != "":
		return bodyID, nil
	case headerID != "":
		return headerID, nil
	default:
		return uuid.NewString(), nil
	}
}

func (h *FormsHandler) count(kind models.FormKind, outcome string) {
	if h.metrics != nil {
		h.metrics.Submissions.WithLabelValues(string(kind), outcome).Inc()
	}
}
