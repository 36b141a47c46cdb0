package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError converts a request binding failure into a 400 error.
// Constraint violations are reported per field; malformed JSON gets a single message.
// A body cut off by the size limit becomes a 413.
func NewValidationError(err error) *AppError {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return NewPayloadTooLargeError("PAYLOAD_TOO_LARGE",
			fmt.Sprintf("The request body exceeds %d bytes", tooLarge.Limit))
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   jsonFieldName(fe),
				Message: fieldMessage(fe),
			})
		}
		return BadRequestWithDetails("VALIDATION_FAILED", "The request payload is invalid", fields)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr) {
		return NewBadRequestError("INVALID_JSON", "The request body is not valid JSON")
	}

	return BadRequestWithDetails("INVALID_REQUEST", "The request payload is invalid", err.Error())
}

func jsonFieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "notblank":
		return "This value should not be blank."
	case "email":
		return fmt.Sprintf("The email %q is not a valid email.", fe.Value())
	case "min":
		return fmt.Sprintf("This value must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("This value cannot be longer than %s characters.", fe.Param())
	case "strongpassword":
		return "Password must contain at least one uppercase letter, one lowercase letter, one digit, and one special character."
	case "oneof":
		return fmt.Sprintf("This value must be one of: %s.", fe.Param())
	default:
		return fmt.Sprintf("This value failed the %q constraint.", fe.Tag())
	}
}
