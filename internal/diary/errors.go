package diary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/platewise/internal/validation"
)

var (
	// ErrSickFavorite indicates an attempt to favorite an entry the user felt sick after.
	ErrSickFavorite = errors.New("entries marked sick cannot be favorited")
)

// ValidationFailedError carries the field errors of a rejected submission.
type ValidationFailedError struct {
	Errors []validation.ValidationError
}

func (e *ValidationFailedError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}
