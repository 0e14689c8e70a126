// Package validation wraps go-playground/validator so request structs report
// field errors under their JSON names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return sf.Name
		}
		return name
	})

	return v
}

// Struct validates v and returns one FieldError per failed rule, or nil.
func Struct(v interface{}) ([]FieldError, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}

	var validatorErrors validator.ValidationErrors
	if !errors.As(err, &validatorErrors) {
		return nil, err
	}

	return FromValidator(validatorErrors), nil
}

func FromValidator(errs validator.ValidationErrors) []FieldError {
	fields := make([]FieldError, 0, len(errs))

	for _, fieldError := range errs {
		rule := fieldError.Tag()
		param := fieldError.Param()

		fields = append(fields, FieldError{
			Field:   fieldPath(fieldError),
			Rule:    rule,
			Param:   param,
			Message: Message(rule, param),
		})
	}

	return fields
}

// fieldPath drops the root struct name from the namespace, which is already
// expressed in JSON names.
func fieldPath(fieldError validator.FieldError) string {
	ns := fieldError.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok && rest != "" {
		return rest
	}

	return fieldError.Field()
}

func Message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
