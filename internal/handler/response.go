package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// Response is the body of every error reply. Successful replies carry the
// resource itself.
type Response struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewAppErrorResponse renders err, hiding the internals of server errors.
func NewAppErrorResponse(err *apperrors.AppError) *Response {
	resp := NewErrorResponse(err.Message)
	resp.Errors = err.Details
	return resp
}

var validationMessages = map[string]string{
	"required":           "is required",
	"email":              "must be a valid email address",
	"min":                "is too short",
	"gte":                "must not be negative",
	"hospital_role":      "must be one of ADMIN, DOCTOR, PATIENT",
	"appointment_status": "must be one of PENDING, CONFIRMED, COMPLETED, CANCELLED",
}

// BindError converts a gin binding failure into a 400 AppError.
func BindError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]apperrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			msg, ok := validationMessages[fe.Tag()]
			if !ok {
				msg = fmt.Sprintf("failed on the %q rule", fe.Tag())
			}
			if fe.Tag() == "min" && fe.Param() != "" {
				msg = fmt.Sprintf("must be at least %s characters", fe.Param())
			}
			details = append(details, apperrors.FieldError{Field: fieldPath(fe), Message: msg})
		}
		return apperrors.Validation("validation failed", details...)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return apperrors.BadRequest("malformed JSON body", err)
	case errors.As(err, &typeErr):
		return apperrors.Validation("validation failed", apperrors.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be a %s", typeErr.Type),
		})
	case errors.Is(err, io.EOF):
		return apperrors.BadRequest("request body is required", err)
	}
	return apperrors.BadRequest(err.Error(), err)
}

// fieldPath drops the top-level struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
