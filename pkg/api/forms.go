package api

// Headers used by the form endpoint
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAuthorization  = "Authorization"
)

// SubmitFormRequest is the body of POST /api/v1/forms/{kind}
type SubmitFormRequest struct {
	Fields map[string]any `json:"fields"`
	ID     string         `json:"id"` // ID идентификатор отправки, повтор с тем же ID не создает дубликат
}

// SubmitFormResponse is returned for an accepted submission
type SubmitFormResponse struct {
	Message   string `json:"message"`
	ID        string `json:"id"`
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"` // Duplicate отправка с этим ID уже была принята
}

// HealthResponse is returned by GET /api/v1/health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
