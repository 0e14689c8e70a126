package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/geocoder89/authhub/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON decodes the body into out. Rule validation happens in the
// accounts workflow; this only reports bodies that cannot be decoded.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
			return false
		}

		RespondValidation(ctx, parseBindError(err, out))

		return false
	}

	return true
}

func parseBindError(err error, out interface{}) []validation.FieldError {
	rootType := baseStructType(out)

	// binding tags, if a request struct ever carries them

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		return validation.FromValidator(validatorError)
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []validation.FieldError{{
			Field:   "body",
			Rule:    "json",
			Message: "must be valid JSON",
		}}
	}

	if errors.Is(err, io.EOF) {
		return []validation.FieldError{{
			Field:   "body",
			Rule:    "required",
			Message: "is required",
		}}
	}

	// in the event of a type mismatch

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := jsonPathFromDotPath(rootType, unmatchedTypeError.Field)

		if field == "" {
			field = strings.TrimSpace(unmatchedTypeError.Field)
		}

		return []validation.FieldError{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
		}}
	}

	// final fallback if the error could not be deciphered
	return []validation.FieldError{{
		Field:   "body",
		Rule:    "decode",
		Message: "could not be decoded",
	}}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func jsonPathFromDotPath(rootType reflect.Type, dotPath string) string {
	dotPath = strings.TrimSpace(dotPath)
	if dotPath == "" {
		return ""
	}

	parts := strings.Split(dotPath, ".")
	out := make([]string, 0, len(parts))
	current := rootType

	for _, part := range parts {
		if part == "" {
			continue
		}

		name := part
		var next reflect.Type

		if current != nil && current.Kind() == reflect.Struct {
			if sf, ok := fieldByJSONOrName(current, part); ok {
				name = jsonNameFromStructField(sf)
				next = sf.Type
			}
		}

		out = append(out, name)

		current = unwindCollection(next)
	}

	return strings.Join(out, ".")
}

// encoding/json reports Go field names on older toolchains and JSON names on
// newer ones, so accept either.
func fieldByJSONOrName(t reflect.Type, part string) (reflect.StructField, bool) {
	if sf, ok := t.FieldByName(part); ok {
		return sf, true
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if jsonNameFromStructField(sf) == part {
			return sf, true
		}
	}

	return reflect.StructField{}, false
}

func jsonNameFromStructField(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func unwindCollection(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}

	return nil
}
