package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write in handler")
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(bufferLogger(&buf))(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/forms/exit", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	resp := errorBody(t, w)
	assert.Equal(t, "internal server error", resp.Message)
	assert.NotContains(t, w.Body.String(), "nil map write")

	logged := buf.String()
	assert.Contains(t, logged, "Panic recovered")
	assert.Contains(t, logged, "nil map write in handler")
	assert.Contains(t, logged, "stack")
}

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	w := httptest.NewRecorder()

	RecoveryMiddleware(bufferLogger(&buf))(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Empty(t, buf.String())
}

func TestRecoveryMiddleware_AbortHandlerPropagates(t *testing.T) {
	aborting := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		RecoveryMiddleware(discardLogger())(aborting).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
