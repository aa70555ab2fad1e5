package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/nexora/nexora-bfa-go/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance. Field names in errors use
// the json tag so messages match the payload the caller sent.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// Parse decodes body into T and validates it. A body that is itself a
// JSON-encoded string is unwrapped first. Every failure is reported as
// *domain.ErrMalformedResponse for service.
func Parse[T any](service string, body []byte) (*T, error) {
	body, err := unwrapStringBody(body)
	if err != nil {
		return nil, &domain.ErrMalformedResponse{Service: service, Err: err}
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &domain.ErrMalformedResponse{Service: service, Err: err}
	}
	if err := Validator().Struct(&v); err != nil {
		return nil, &domain.ErrMalformedResponse{Service: service, Err: describe(err)}
	}
	return &v, nil
}

// ParseAnalysis decodes an embedded credit_score_analysis. It returns
// (nil, nil) when the analysis is absent, null or an empty object.
func ParseAnalysis(service string, raw json.RawMessage) (*domain.CreditScoreAnalysis, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || isEmptyObject(trimmed) {
		return nil, nil
	}
	a, err := Parse[CreditScoreAnalysis](service, trimmed)
	if err != nil {
		return nil, err
	}
	return a.ToDomain(), nil
}

// ValidateInput checks a caller-supplied struct and returns *domain.ErrValidation
// naming the first offending field.
func ValidateInput(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domain.ErrValidation{Field: fe.Field(), Message: ruleMessage(fe)}
	}
	return &domain.ErrValidation{Field: "body", Message: err.Error()}
}

func unwrapStringBody(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("string-encoded body: %w", err)
	}
	return bytes.TrimSpace([]byte(inner)), nil
}

func isEmptyObject(b []byte) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return false
	}
	return len(m) == 0
}

func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return fmt.Errorf("field %s: %s", fe.Namespace(), ruleMessage(fe))
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return "must have at least " + fe.Param() + " entries"
		}
		return "must have at least " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
