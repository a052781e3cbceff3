package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages.
// Each message is prefixed with the field path relative to the validated struct,
// e.g. "education[0].gpa: must be at most 4".
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error (e.g. malformed JSON), return it as is
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s: %s", fieldPath(e), describe(e)))
	}
	return messages
}

// fieldPath strips the root struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func describe(e validator.FieldError) string {
	param := e.Param()

	switch e.Tag() {
	case "required":
		return "is required"

	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		return fmt.Sprintf("must be at least %s", param)

	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		return fmt.Sprintf("must be at most %s", param)

	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(splitOneOf(param), ", "))

	case "email":
		return "must be a valid email address"

	case "max_bytes":
		return fmt.Sprintf("must be at most %s bytes", param)

	default:
		return fmt.Sprintf("failed validation (%s)", e.Tag())
	}
}

// splitOneOf splits a oneof parameter, keeping single-quoted values together.
func splitOneOf(param string) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	for _, r := range param {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ' ' && !quoted:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
