package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/yardsync/internal/models"
)

// ErrUnknownKind indicates that no form is registered for the kind
var ErrUnknownKind = errors.New("unknown form kind")

// ValidationError lists every schema violation of a payload
type ValidationError struct {
	Kind     models.FormKind
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s form: %s", e.Kind, strings.Join(e.Problems, "; "))
}
