package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Error is a failed request. Status 0 means the server was not reached.
type Error struct {
	Err     error // Err исходная сетевая ошибка, если запрос не дошел до сервера
	Message string
	Details []string
	Status  int
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return "network error: " + e.Message
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("server error (%d): %s: %s", e.Status, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the server
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// parseError builds an *Error from a non-2xx response body.
// The server answers with api.ErrorResponse; other bodies are kept verbatim.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}

	if gjson.ValidBytes(body) {
		res := gjson.GetManyBytes(body, "message", "error")
		for _, r := range res {
			if r.String() != "" {
				e.Message = r.String()
				break
			}
		}
		for _, d := range gjson.GetBytes(body, "details").Array() {
			e.Details = append(e.Details, d.String())
		}
	}

	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
